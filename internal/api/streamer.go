package api

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"net/url"
)

// Streamer reads the video streamer state and screen snapshots
type Streamer struct {
	client *Client
}

// Streamer returns the streamer endpoints of c.
func (c *Client) Streamer() *Streamer {
	return &Streamer{client: c}
}

// State returns /api/streamer.
func (s *Streamer) State(ctx context.Context) (map[string]any, error) {
	return s.client.state(ctx, "/api/streamer")
}

// Snapshot returns the current frame as JPEG. kvmd serves the last frame
// even when the host signal is gone.
func (s *Streamer) Snapshot(ctx context.Context) ([]byte, error) {
	q := url.Values{}
	q.Set("allow_offline", "1")
	return s.client.raw(ctx, "/api/streamer/snapshot", q)
}

// SnapshotText returns the OCR'd text of the current frame.
func (s *Streamer) SnapshotText(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("ocr", "1")
	q.Set("allow_offline", "1")
	data, err := s.client.raw(ctx, "/api/streamer/snapshot", q)
	return string(data), err
}

// FrameSize decodes the dimensions of a fresh snapshot.
func (s *Streamer) FrameSize(ctx context.Context) (width, height int, err error) {
	data, err := s.Snapshot(ctx)
	if err != nil {
		return 0, 0, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode snapshot: %w", err)
	}
	s.client.log.Debug().Str("format", format).Int("width", cfg.Width).Int("height", cfg.Height).Msg("frame size")
	return cfg.Width, cfg.Height, nil
}
