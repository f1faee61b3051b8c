package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/axdrive/axdrive/pkg/ax"
)

// Application is one entry of the running-applications resource.
type Application struct {
	Name     string `json:"name"`
	BundleID string `json:"bundleID"`
	PID      int    `json:"pid"`
}

// Applications reads the application-listing resource.
func (s *Session) Applications(ctx context.Context) ([]Application, error) {
	doc, err := s.ReadResource(ctx, URIApplications)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Applications []Application `json:"applications"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, fmt.Errorf("mcp: decode application list: %w", err)
	}
	return payload.Applications, nil
}

// Tree reads the accessibility-tree resource and wraps it in a fresh
// snapshot. Every call yields an independent capture.
func (s *Session) Tree(ctx context.Context) (*ax.Snapshot, error) {
	doc, err := s.ReadResource(ctx, URITree)
	if err != nil {
		return nil, err
	}
	var payload struct {
		BundleID string   `json:"bundleID"`
		Tree     *ax.Node `json:"tree"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, fmt.Errorf("mcp: decode accessibility tree: %w", err)
	}
	if payload.Tree == nil {
		return nil, fmt.Errorf("mcp: accessibility tree: %w", ErrNoData)
	}
	return &ax.Snapshot{
		App:        payload.BundleID,
		CapturedAt: time.Now(),
		Tree:       payload.Tree,
	}, nil
}

// Screenshot is a decoded screenshot capture.
type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Screenshot reads and decodes the screenshot resource.
func (s *Session) Screenshot(ctx context.Context) (*Screenshot, error) {
	doc, err := s.ReadResource(ctx, URIScreenshot)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Success   bool   `json:"success"`
		ImageData string `json:"image_data"`
		Format    string `json:"format"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, fmt.Errorf("mcp: decode screenshot: %w", err)
	}
	if !payload.Success || payload.ImageData == "" {
		return nil, fmt.Errorf("mcp: screenshot: %w", ErrNoData)
	}
	data, err := base64.StdEncoding.DecodeString(payload.ImageData)
	if err != nil {
		return nil, fmt.Errorf("mcp: decode screenshot image: %w", err)
	}
	return &Screenshot{
		Data:   data,
		Format: payload.Format,
		Width:  payload.Width,
		Height: payload.Height,
	}, nil
}
