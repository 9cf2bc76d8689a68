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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jordigilh/tunneledge/internal/domain"
)

// WorkOrderRepository persists WorkOrder rows (§4.9, §6).
type WorkOrderRepository struct {
	db *sqlx.DB
}

// NewWorkOrderRepository builds a WorkOrderRepository.
func NewWorkOrderRepository(db *sqlx.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

// CreateWorkOrder implements workorder.Repository.
func (r *WorkOrderRepository) CreateWorkOrder(ctx context.Context, wo domain.WorkOrder) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO work_orders (
			work_order_id, warning_id, category, priority, status,
			verification_required, verification_ring_count, verified_at_ring,
			synced_to_cloud, created_at, updated_at
		) VALUES (
			:work_order_id, :warning_id, :category, :priority, :status,
			:verification_required, :verification_ring_count, :verified_at_ring,
			:synced_to_cloud, :created_at, :updated_at
		)
	`, map[string]any{
		"work_order_id":           wo.WorkOrderID,
		"warning_id":              wo.WarningID,
		"category":                wo.Category,
		"priority":                wo.Priority,
		"status":                  wo.Status,
		"verification_required":   wo.VerificationRequired,
		"verification_ring_count": wo.VerificationRingCount,
		"verified_at_ring":        wo.VerifiedAtRing,
		"synced_to_cloud":         wo.SyncedToCloud,
		"created_at":              wo.CreatedAt,
		"updated_at":              wo.UpdatedAt,
	})
	if err != nil {
		return mapError(err, "insert work_orders row")
	}
	return nil
}

// UpdateStatus transitions a work order's status, optionally recording the
// ring at which field verification occurred.
func (r *WorkOrderRepository) UpdateStatus(ctx context.Context, workOrderID string, status domain.WorkOrderStatus, verifiedAtRing *int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE work_orders SET status = $1, verified_at_ring = COALESCE($2, verified_at_ring)
		WHERE work_order_id = $3
	`, status, verifiedAtRing, workOrderID)
	if err != nil {
		return mapError(err, "update work_orders status")
	}
	return nil
}

// GetByWarningID retrieves the work order generated for a given warning, if
// any — used to guard against re-generation across a process restart,
// complementing the generator's in-memory dedup set.
func (r *WorkOrderRepository) GetByWarningID(ctx context.Context, warningID string) (domain.WorkOrder, bool, error) {
	var row workOrderRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM work_orders WHERE warning_id = $1`, warningID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WorkOrder{}, false, nil
	}
	if err != nil {
		return domain.WorkOrder{}, false, mapError(err, "retrieve work_orders")
	}
	return row.toDomain(), true, nil
}

type workOrderRow struct {
	WorkOrderID           string  `db:"work_order_id"`
	WarningID             string  `db:"warning_id"`
	Category              string  `db:"category"`
	Priority              string  `db:"priority"`
	Status                string  `db:"status"`
	VerificationRequired  bool    `db:"verification_required"`
	VerificationRingCount int     `db:"verification_ring_count"`
	VerifiedAtRing        *int64  `db:"verified_at_ring"`
	SyncedToCloud         bool      `db:"synced_to_cloud"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

func (row workOrderRow) toDomain() domain.WorkOrder {
	return domain.WorkOrder{
		WorkOrderID:           row.WorkOrderID,
		WarningID:             row.WarningID,
		Category:              row.Category,
		Priority:              domain.WorkOrderPriority(row.Priority),
		Status:                domain.WorkOrderStatus(row.Status),
		VerificationRequired:  row.VerificationRequired,
		VerificationRingCount: row.VerificationRingCount,
		VerifiedAtRing:        row.VerifiedAtRing,
		SyncedToCloud:         row.SyncedToCloud,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}
}
