// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/manifest"
)

// DefaultHTTPTimeout bounds one upload.
const DefaultHTTPTimeout = 5 * time.Minute

// maxResponseBytes caps how much of the response body is read.
const maxResponseBytes = 1 << 20

// HTTPSubmitter uploads the image as multipart/form-data with the
// fields deviceId, firmwareId, version and file. The service answers
// with {"jobId": "..."}.
type HTTPSubmitter struct {
	URL string

	// Token, when set, is sent as a bearer token.
	Token string

	// Client defaults to an http.Client with DefaultHTTPTimeout.
	Client *http.Client
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

// Submit uploads firmware for deviceID.
func (s *HTTPSubmitter) Submit(ctx context.Context, deviceID string, firmware manifest.Firmware) (string, error) {
	image, err := os.Open(firmware.Path)
	if err != nil {
		return "", fmt.Errorf("delivery: opening image: %w", err)
	}
	defer image.Close()

	body, writer := io.Pipe()
	form := multipart.NewWriter(writer)
	go func() {
		writer.CloseWithError(writeForm(form, deviceID, firmware, image))
	}()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, body)
	if err != nil {
		body.Close()
		return "", fmt.Errorf("delivery: building request: %w", err)
	}
	request.Header.Set("Content-Type", form.FormDataContentType())
	request.Header.Set("Accept", "application/json")
	if s.Token != "" {
		request.Header.Set("Authorization", "Bearer "+s.Token)
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	response, err := client.Do(request)
	if err != nil {
		body.Close()
		return "", fmt.Errorf("delivery: submitting %s: %w", firmware.ID, err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("delivery: reading response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", fmt.Errorf("delivery: %s returned %s: %s", s.URL, response.Status, truncate(string(payload), 200))
	}
	if len(payload) == 0 {
		return "", nil
	}
	var decoded submitResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("delivery: decoding response: %w", err)
	}
	return decoded.JobID, nil
}

func writeForm(form *multipart.Writer, deviceID string, firmware manifest.Firmware, image io.Reader) error {
	fields := [][2]string{
		{"deviceId", deviceID},
		{"firmwareId", firmware.ID},
		{"version", firmware.Version},
	}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("file", filepath.Base(firmware.Path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, image); err != nil {
		return err
	}
	return form.Close()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
