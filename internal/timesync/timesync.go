package timesync

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/beevik/ntp"

	"snapcam/internal/config"
	"snapcam/internal/debug"
)

const (
	ntpServer      = "pool.ntp.org"
	worldTimeAPI   = "http://worldtimeapi.org/api/timezone/%s"
	requestTimeout = 10 * time.Second
)

// Result is delivered to the control loop once the background sync
// finishes. Err is non-nil when sync was skipped or failed; the device
// keeps working either way, only time-lapse timestamps lose accuracy.
type Result struct {
	Time   time.Time
	Offset time.Duration
	Err    error
}

// Start launches the time sync in the background and returns the
// channel the result arrives on. The channel is buffered so the
// goroutine never blocks on a loop that is busy: this is the
// single-producer/single-consumer hand-off into the control loop, the
// only cross-goroutine traffic in the process.
func Start(opts config.EnvOptions) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		ch <- sync(opts)
	}()
	return ch
}

func sync(opts config.EnvOptions) Result {
	if opts.WifiSSID == "" || opts.WifiPassword == "" {
		debug.Info("WiFi options not set; time not synced")
		return Result{Err: &config.ConfigFault{Key: "WIFI_SSID", Err: fmt.Errorf("not set")}}
	}

	offset, err := resolveOffset(opts)
	if err != nil {
		debug.Error(err)
		offset = 0
	}

	t, err := ntp.Time(ntpServer)
	if err != nil {
		return Result{Err: fmt.Errorf("timesync: ntp query: %w", err)}
	}

	synced := t.Add(offset)
	debug.Info("Time synced: %s (offset %v)", synced.Format(time.RFC3339), offset)
	return Result{Time: synced, Offset: offset}
}

// resolveOffset prefers the explicit UTC_OFFSET; otherwise it asks
// worldtimeapi for the TZ's current raw+DST offset.
func resolveOffset(opts config.EnvOptions) (time.Duration, error) {
	if opts.UTCOffset != nil {
		return time.Duration(*opts.UTCOffset) * time.Second, nil
	}
	if opts.TZ == "" {
		return 0, nil
	}
	return FetchTZOffset(http.DefaultClient, fmt.Sprintf(worldTimeAPI, opts.TZ))
}

// FetchTZOffset queries a worldtimeapi-compatible endpoint and returns
// raw_offset+dst_offset as a duration.
func FetchTZOffset(client *http.Client, url string) (time.Duration, error) {
	c := *client
	c.Timeout = requestTimeout

	resp, err := c.Get(url)
	if err != nil {
		return 0, fmt.Errorf("timesync: timezone lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("timesync: timezone lookup: status %d", resp.StatusCode)
	}

	var body struct {
		RawOffset int `json:"raw_offset"`
		DSTOffset int `json:"dst_offset"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("timesync: decode timezone response: %w", err)
	}
	return time.Duration(body.RawOffset+body.DSTOffset) * time.Second, nil
}
