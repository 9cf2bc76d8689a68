/*
Copyright 2026 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileService writes each message as a standalone file under a
// directory, mainly for local development and for environments with no
// network-reachable sink configured.
type FileService struct {
	dir string
}

// NewFileDeliveryService builds a FileService rooted at dir.
func NewFileDeliveryService(dir string) *FileService {
	return &FileService{dir: dir}
}

// Deliver writes msg to a new file under the service's directory. Both
// directory-creation and write failures are wrapped as RetryableError:
// transient permission/disk conditions should be retried, not treated as
// a permanent configuration error.
func (s *FileService) Deliver(ctx context.Context, msg Message) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Retryable(fmt.Errorf("failed to create output directory: %w", err))
	}

	name := fmt.Sprintf("%s-%s-%d.txt", msg.Event.WarningID, msg.Event.WarningLevel, time.Now().UnixNano())
	path := filepath.Join(s.dir, name)

	content := msg.Subject + "\n\n" + msg.Body
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return Retryable(fmt.Errorf("failed to write notification file: %w", err))
	}
	return nil
}
