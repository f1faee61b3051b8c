package mcp

import (
	"context"
	"math"
	"time"
)

// Tool names understood by the daemon.
const (
	toolMouseClick = "mouse_click"
	toolTypeText   = "type_text"
	toolWaitTime   = "wait_time"
)

// Click issues a single left click at the given screen coordinate.
func (s *Session) Click(ctx context.Context, x, y float64) error {
	_, err := s.CallTool(ctx, toolMouseClick, map[string]any{
		"x":           int(math.Round(x)),
		"y":           int(math.Round(y)),
		"button":      "left",
		"click_count": 1,
	})
	return err
}

// TypeText synthesizes keystrokes for text.
func (s *Session) TypeText(ctx context.Context, text string) error {
	_, err := s.CallTool(ctx, toolTypeText, map[string]any{"text": text})
	return err
}

// PressReturn confirms the current input, submitting a search.
func (s *Session) PressReturn(ctx context.Context) error {
	return s.TypeText(ctx, "\n")
}

// Wait asks the daemon to idle for d. When the daemon lacks the wait tool the
// pause happens locally instead, so settle waits work either way.
func (s *Session) Wait(ctx context.Context, d time.Duration) error {
	_, err := s.CallTool(ctx, toolWaitTime, map[string]any{"duration": d.Seconds()})
	if err == nil {
		return nil
	}
	if s.logger != nil {
		s.logger.Printf("wait_time unavailable (%v), sleeping locally", err)
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
