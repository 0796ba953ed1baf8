package usb

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func sequencedStatus(counter, target, vgmOffset, length uint32) []byte {
	return statusBytes(counter<<8|bufferingRequestHeader, target, vgmOffset, length)
}

func runPollerUntilIdle(t *testing.T, fake *fakeTransport, poller *Poller) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- poller.Run(ctx)
	}()

	// Wait until the queued reports drain, then stop the poller.
	deadline := time.After(5 * time.Second)
	for {
		fake.mu.Lock()
		remaining := len(fake.status)
		fake.mu.Unlock()
		if remaining == 0 {
			break
		}
		select {
		case <-deadline:
			cancel()
			t.Fatal("Poller never drained queued status reports")
		case <-time.After(time.Millisecond):
		}
	}
	// One extra settling pass so the last report is fully serviced.
	time.Sleep(10 * time.Millisecond)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestPollerServicesBufferingRequest(t *testing.T) {
	vgmData := make([]byte, 0x2000)
	for i := range vgmData {
		vgmData[i] = byte(i)
	}

	fake := &fakeTransport{
		status: [][]byte{sequencedStatus(0, 0x4000, 0x1000, 0x800)},
	}
	uploader := newUploader(fake, testLog())
	poller := newPoller(fake, uploader, vgmData, testLog())

	var serviced []StatusMessage
	poller.OnRequest = func(msg StatusMessage) {
		serviced = append(serviced, msg)
	}

	runPollerUntilIdle(t, fake, poller)

	transfers := fake.recorded()
	if len(transfers) != 2 {
		t.Fatalf("Expected control+bulk transfer, got %d", len(transfers))
	}
	if !bytes.Equal(transfers[1].payload, vgmData[0x1000:0x1800]) {
		t.Error("Expected the requested VGM slice to be uploaded")
	}
	if len(serviced) != 1 {
		t.Fatalf("Expected 1 serviced request, got %d", len(serviced))
	}
	if serviced[0].TargetOffset != 0x4000 {
		t.Errorf("Expected target offset 0x4000, got %#x", serviced[0].TargetOffset)
	}
}

func TestPollerIgnoresNonSequentialCounter(t *testing.T) {
	fake := &fakeTransport{
		status: [][]byte{
			sequencedStatus(5, 0, 0, 0x10), // counter starts at 0; ignored
			sequencedStatus(0, 0, 0, 0x10), // valid
			sequencedStatus(2, 0, 0, 0x10), // expected 1; ignored
			sequencedStatus(1, 0, 0x10, 0x10),
		},
	}
	uploader := newUploader(fake, testLog())
	poller := newPoller(fake, uploader, make([]byte, 0x100), testLog())

	count := 0
	poller.OnRequest = func(StatusMessage) { count++ }

	runPollerUntilIdle(t, fake, poller)

	if count != 2 {
		t.Errorf("Expected 2 serviced requests, got %d", count)
	}
}

func TestPollerIgnoresUnknownHeader(t *testing.T) {
	fake := &fakeTransport{
		status: [][]byte{statusBytes(0x00000004, 0, 0, 0x10)},
	}
	uploader := newUploader(fake, testLog())
	poller := newPoller(fake, uploader, make([]byte, 0x100), testLog())

	count := 0
	poller.OnRequest = func(StatusMessage) { count++ }

	runPollerUntilIdle(t, fake, poller)

	if count != 0 {
		t.Errorf("Expected no serviced requests, got %d", count)
	}
	if len(fake.recorded()) != 0 {
		t.Error("Expected no uploads for unknown header")
	}
}

func TestPollerIgnoresOutOfRangeRequest(t *testing.T) {
	fake := &fakeTransport{
		status: [][]byte{sequencedStatus(0, 0, 0x80, 0x100)},
	}
	uploader := newUploader(fake, testLog())
	poller := newPoller(fake, uploader, make([]byte, 0x100), testLog())

	runPollerUntilIdle(t, fake, poller)

	if len(fake.recorded()) != 0 {
		t.Error("Expected no uploads for out-of-range request")
	}
}

func TestPollerFatalOnDeviceError(t *testing.T) {
	fake := &fakeTransport{statusErr: errors.New("device gone")}
	uploader := newUploader(fake, testLog())
	poller := newPoller(fake, uploader, make([]byte, 0x100), testLog())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := poller.Run(ctx)
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected fatal device error, got %v", err)
	}
}
