package fault

import (
	"strconv"
	"strings"

	"codeberg.org/mutker/hdsim/internal/errors"
	"codeberg.org/mutker/hdsim/internal/model"
)

// Category is one of the fixed trigger categories an operator can fire.
type Category int

const (
	NullPointer Category = iota + 1
	OutOfRange
	ConfigMismatch
	WatchdogTimeout
)

const (
	defaultLogFile = "/var/logs/app/application_b.dlt"
	nativeLogFile  = "/var/log/app_rust.log"
)

type entry struct {
	name        string
	exception   string
	faultCode   string
	faultType   string
	severity    model.Severity
	description string
	logFile     string
	capture     []string
	environment []string
}

var catalog = map[Category]entry{
	NullPointer: {
		name:        "null-pointer",
		exception:   "simulated null pointer",
		faultCode:   "F018",
		faultType:   "F0",
		severity:    model.SeverityError,
		description: "Null pointer dereference",
		logFile:     nativeLogFile,
		capture:     []string{"DLTLogs", "MemoryDump"},
		environment: []string{"CPU", "RAM"},
	},
	OutOfRange: {
		name:        "out-of-range",
		exception:   "simulated index out of range",
		faultCode:   "F021",
		faultType:   "F9",
		severity:    model.SeverityCritical,
		description: "Array out of range",
		logFile:     defaultLogFile,
		capture:     []string{"DLTLogs", "PCAP"},
		environment: []string{"CPU", "RAM"},
	},
	ConfigMismatch: {
		name:        "config-mismatch",
		exception:   "config missing",
		faultCode:   "F01C",
		faultType:   "F4",
		severity:    model.SeverityWarning,
		description: "Configuration mismatch",
		logFile:     defaultLogFile,
		capture:     []string{"DLTLogs"},
		environment: []string{"DISK", "RAM"},
	},
	WatchdogTimeout: {
		name:        "watchdog-timeout",
		exception:   "simulated watchdog timeout",
		faultCode:   "F01A",
		faultType:   "F2",
		severity:    model.SeverityError,
		description: "Watchdog timeout",
		logFile:     defaultLogFile,
		capture:     []string{"DLTLogs", "PCAP"},
		environment: []string{"CPU", "RAM", "THREADS"},
	},
}

// Categories lists every category in catalog order.
func Categories() []Category {
	return []Category{NullPointer, OutOfRange, ConfigMismatch, WatchdogTimeout}
}

// String returns the command-line name, e.g. "watchdog-timeout".
func (c Category) String() string {
	if e, ok := catalog[c]; ok {
		return e.name
	}
	return "category(" + strconv.Itoa(int(c)) + ")"
}

// IsValid reports whether c is in the catalog.
func (c Category) IsValid() bool {
	_, ok := catalog[c]
	return ok
}

// Exception is the message of the simulated exception that precedes the
// report, as an operator would see it caught.
func (c Category) Exception() string {
	return catalog[c].exception
}

// ParseCategory accepts a command-line name or its 1-based catalog position.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if n, err := strconv.Atoi(s); err == nil {
		c := Category(n)
		if c.IsValid() {
			return c, nil
		}
	}

	for _, c := range Categories() {
		if catalog[c].name == s {
			return c, nil
		}
	}

	return 0, errors.New().WithData(ErrUnknownCategory, s)
}
