//go:build !linux && !darwin

package crashlog

func maxRSS() uint64 {
	return 0
}
