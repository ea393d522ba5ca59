package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"ppemonitor/internal/config"
)

// ErrDeviceUnavailable is returned when the capture device cannot be opened.
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// DeviceSource reads frames from a local camera (or any source OpenCV can
// open) and hands them out JPEG encoded.
type DeviceSource struct {
	webcam   *gocv.VideoCapture
	frame    gocv.Mat
	released bool
	mu       sync.Mutex
}

// OpenDevice opens the configured device and applies the requested frame size.
func OpenDevice(cfg *config.Config) (*DeviceSource, error) {
	webcam, err := gocv.OpenVideoCapture(cfg.CameraDevice)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, cfg.CameraDevice, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, fmt.Errorf("%w: %s", ErrDeviceUnavailable, cfg.CameraDevice)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(cfg.FrameWidth))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(cfg.FrameHeight))

	return &DeviceSource{
		webcam: webcam,
		frame:  gocv.NewMat(),
	}, nil
}

// ReadFrame grabs the next frame. ok is false once the device stops
// delivering frames or after Release.
func (d *DeviceSource) ReadFrame() ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil, false
	}
	if ok := d.webcam.Read(&d.frame); !ok || d.frame.Empty() {
		return nil, false
	}

	buf, err := gocv.IMEncode(".jpg", d.frame)
	if err != nil {
		return nil, false
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, true
}

// Release closes the device. Safe to call more than once.
func (d *DeviceSource) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil
	}
	d.released = true
	d.frame.Close()
	return d.webcam.Close()
}
