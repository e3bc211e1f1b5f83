package api

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// MSD manages the mass storage drive emulated towards the host
type MSD struct {
	client *Client
}

// MSD returns the mass storage endpoints of c.
func (c *Client) MSD() *MSD {
	return &MSD{client: c}
}

// State returns /api/msd.
func (m *MSD) State(ctx context.Context) (map[string]any, error) {
	return m.client.state(ctx, "/api/msd")
}

// SetParams selects image and presents it as a CD-ROM or, when cdrom is
// false, as a flash drive.
func (m *MSD) SetParams(ctx context.Context, image string, cdrom bool) error {
	q := url.Values{}
	q.Set("image", image)
	q.Set("cdrom", boolParam(cdrom))
	return m.client.post(ctx, "/api/msd/set_params", q, nil)
}

// Connect attaches the drive to the host.
func (m *MSD) Connect(ctx context.Context) error {
	return m.setConnected(ctx, true)
}

// Disconnect detaches the drive from the host.
func (m *MSD) Disconnect(ctx context.Context) error {
	return m.setConnected(ctx, false)
}

func (m *MSD) setConnected(ctx context.Context, connected bool) error {
	q := url.Values{}
	q.Set("connected", boolParam(connected))
	if err := m.client.post(ctx, "/api/msd/set_connected", q, nil); err != nil {
		return err
	}
	if connected {
		m.client.log.Warn().Msg("MSD connected")
	} else {
		m.client.log.Warn().Msg("MSD disconnected")
	}
	return nil
}

// Remove deletes a stored image.
func (m *MSD) Remove(ctx context.Context, image string) error {
	q := url.Values{}
	q.Set("image", image)
	return m.client.post(ctx, "/api/msd/remove", q, nil)
}

// Reset resets the MSD subsystem.
func (m *MSD) Reset(ctx context.Context) error {
	return m.client.post(ctx, "/api/msd/reset", nil, nil)
}

// WriteRemote makes kvmd download remote into the image store. An empty
// image name uses the last element of the URL path.
func (m *MSD) WriteRemote(ctx context.Context, remote, image string) error {
	if image == "" {
		u, err := url.Parse(remote)
		if err != nil {
			return fmt.Errorf("parse remote url: %w", err)
		}
		image = path.Base(u.Path)
	}
	q := url.Values{}
	q.Set("url", remote)
	q.Set("image", image)
	return m.client.post(ctx, "/api/msd/write_remote", q, nil)
}

// Upload streams r into the image store as image.
func (m *MSD) Upload(ctx context.Context, image string, r io.Reader) error {
	q := url.Values{}
	q.Set("image", image)
	if err := m.client.post(ctx, "/api/msd/write", q, r); err != nil {
		return err
	}
	m.client.log.Warn().Str("image", image).Msg("image uploaded")
	return nil
}

// UploadFile uploads a local file. An empty image name uses the file's base
// name.
func (m *MSD) UploadFile(ctx context.Context, file, image string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	if image == "" {
		image = filepath.Base(file)
	}
	return m.Upload(ctx, image, f)
}
