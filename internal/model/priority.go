package model

import "strconv"

// Facility is the coarse syslog category of a log source. Values above the
// named range are carried through numerically rather than rejected.
type Facility int

const (
	FacKern Facility = iota
	FacUser
	FacMail
	FacDaemon
	FacAuth
	FacSyslog
	FacLpr
	FacNews
	FacUUCP
	FacCron
	FacAuthPriv
	FacFTP
)

var facilityNames = []string{
	"kern", "user", "mail", "daemon", "auth", "syslog", "lpr", "news",
	"uucp", "cron", "authpriv", "ftp", "ntp", "audit", "alert", "clock",
	"local0", "local1", "local2", "local3", "local4", "local5", "local6", "local7",
}

func (f Facility) String() string {
	if f >= 0 && int(f) < len(facilityNames) {
		return facilityNames[f]
	}
	return "facility(" + strconv.Itoa(int(f)) + ")"
}

// Level is the syslog severity, ordered from LevelEmerg (most severe) to
// LevelDebug.
type Level int

const (
	LevelEmerg Level = iota
	LevelAlert
	LevelCrit
	LevelErr
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
)

var levelNames = []string{
	"emerg", "alert", "crit", "err", "warn", "notice", "info", "debug",
}

func (l Level) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

// DecodePriority splits the combined syslog priority into facility and
// level: facility in the high bits, level in the low three.
func DecodePriority(pri int) (Facility, Level) {
	return Facility(pri >> 3), Level(pri & 0x7)
}

// Priority recombines facility and level into the wire value.
func Priority(f Facility, l Level) int {
	return int(f)<<3 | int(l)&0x7
}
