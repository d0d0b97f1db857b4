package helper

import (
	"fmt"
	"regexp"
	"time"

	"github.com/songquanpeng/chatkit/common/random"
)

// RequestIdKey is both the gin context key and the response header carrying the request id.
const RequestIdKey = "X-Chatkit-Request-Id"

// GetTimestamp get current timestamp in seconds
func GetTimestamp() int64 {
	return time.Now().Unix()
}

func GetTimeString() string {
	now := time.Now()
	return fmt.Sprintf("%s%d", now.Format("20060102150405"), now.UnixNano()%1e9)
}

// GenRequestID returns a sortable, practically unique request id.
func GenRequestID() string {
	return GetTimeString() + random.GetRandomNumberString(8)
}

var requestIDPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{8,64}$`)

// IsRequestID reports whether id can be reused as a request id.
func IsRequestID(id string) bool {
	return requestIDPattern.MatchString(id)
}

// MessageWithRequestId appends the request id so users can quote it when reporting errors.
func MessageWithRequestId(message string, id string) string {
	if id == "" {
		return message
	}
	return fmt.Sprintf("%s (request id: %s)", message, id)
}

// CalcElapsedTime return the elapsed time in milliseconds (ms)
func CalcElapsedTime(start time.Time) int64 {
	elapsed := time.Since(start)
	ms := elapsed.Milliseconds()
	if ms == 0 && elapsed > 0 {
		// sub-millisecond calls still report 1ms
		return 1
	}
	return ms
}
