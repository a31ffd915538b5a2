// Package rmesg provides programmatic access to the Linux kernel log
// buffer, over either the klogctl syscall or the /dev/kmsg device file,
// as one ordered stream of entries.
//
// Quick start:
//
//	entries, err := rmesg.Entries(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, e := range entries {
//	    fmt.Println(e.Message)
//	}
//
// Follow mode tails the buffer until the context is cancelled:
//
//	items, err := rmesg.Stream(ctx, rmesg.WithFollow())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for item := range items {
//	    switch {
//	    case item.Err != nil:
//	        log.Fatal(item.Err)
//	    case item.Gap != nil:
//	        fmt.Printf("** %d messages dropped **\n", item.Gap.Missed)
//	    default:
//	        fmt.Println(item.Entry.Message)
//	    }
//	}
//
// Reading the kernel log usually requires elevated privileges or the
// CAP_SYSLOG capability; permission errors are surfaced immediately and
// never retried.
package rmesg
