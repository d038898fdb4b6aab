package echo

// Baud rate limits in bits per second.
const (
	MinBaudRate     uint32 = 9600
	MaxBaudRate     uint32 = 921600
	DefaultBaudRate uint32 = 115200
)

// ClampBaudRate constrains rate to [MinBaudRate, MaxBaudRate].
func ClampBaudRate(rate uint32) uint32 {
	if rate < MinBaudRate {
		return MinBaudRate
	}
	if rate > MaxBaudRate {
		return MaxBaudRate
	}
	return rate
}
