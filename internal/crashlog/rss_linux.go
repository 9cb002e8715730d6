package crashlog

import "golang.org/x/sys/unix"

func maxRSS() uint64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	// kilobytes on Linux
	return uint64(ru.Maxrss) * 1024
}
