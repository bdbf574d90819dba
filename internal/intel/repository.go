package intel

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/argussec/argus/internal/logger"
	"github.com/argussec/argus/internal/models"
)

// Repository persists intelligence snapshots. It is consulted at startup
// and opportunistically on block/unblock; the gatekeeper keeps working in
// memory-only mode when it is nil or failing.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a Repository over the given DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Load returns all persisted records, skipping rows with unparseable state.
func (r *Repository) Load() ([]models.IPIntelligence, error) {
	var rows []models.IPIntelligenceRecord
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load ip intelligence: %w", err)
	}

	out := make([]models.IPIntelligence, 0, len(rows))
	for _, row := range rows {
		level, err := models.ParseThreatLevel(row.Level)
		if err != nil {
			logger.WithFields(map[string]interface{}{"ip": row.IP, "level": row.Level}).
				Warn("skipping intelligence row with unknown threat level")
			continue
		}
		rec := models.IPIntelligence{
			IP:              row.IP,
			Reputation:      clamp(row.Reputation),
			TotalRequests:   row.TotalRequests,
			BlockedRequests: row.BlockedRequests,
			FirstSeen:       row.FirstSeen,
			LastSeen:        row.LastSeen,
			Countries:       make(map[string]bool),
			UserAgents:      make(map[string]bool),
			AttackPatterns:  make(map[models.AttackType]int),
			Level:           level,
			IsBlocked:       row.IsBlocked && time.Now().Before(row.BlockExpiresAt),
			BlockExpiresAt:  row.BlockExpiresAt,
			BlockReason:     row.BlockReason,
		}
		out = append(out, rec)
	}
	return out, nil
}

// Save upserts one intelligence snapshot keyed by IP.
func (r *Repository) Save(rec models.IPIntelligence) error {
	row := models.IPIntelligenceRecord{
		IP:              rec.IP,
		Reputation:      rec.Reputation,
		TotalRequests:   rec.TotalRequests,
		BlockedRequests: rec.BlockedRequests,
		FirstSeen:       rec.FirstSeen,
		LastSeen:        rec.LastSeen,
		Level:           rec.Level.String(),
		IsBlocked:       rec.IsBlocked,
		BlockExpiresAt:  rec.BlockExpiresAt,
		BlockReason:     rec.BlockReason,
	}

	var existing models.IPIntelligenceRecord
	err := r.db.Where("ip = ?", rec.IP).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(&row).Error
	}
	if err != nil {
		return fmt.Errorf("lookup ip intelligence: %w", err)
	}

	row.ID = existing.ID
	row.CreatedAt = existing.CreatedAt
	return r.db.Save(&row).Error
}
