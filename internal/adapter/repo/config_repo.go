package repo

import (
	"context"
	"time"

	"autoreel/internal/domain"
	"autoreel/internal/infra"
	"autoreel/internal/sqlinline"
)

// ConfigRepositoryPG implements domain.ConfigRepository.
type ConfigRepositoryPG struct {
	runner *infra.SQLRunner
}

// NewConfigRepository creates an autopilot config repository backed by PostgreSQL.
func NewConfigRepository(runner *infra.SQLRunner) *ConfigRepositoryPG {
	return &ConfigRepositoryPG{runner: runner}
}

// ListDue returns every active, approved config whose schedule has arrived.
// The caller advances the schedule before processing so a listed config
// stops being due.
func (r *ConfigRepositoryPG) ListDue(ctx context.Context, now time.Time) ([]domain.AutopilotConfig, error) {
	rows, err := r.runner.Query(ctx, sqlinline.QListDueConfigs, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfigs(rows)
}

// List returns all configs for the ops API.
func (r *ConfigRepositoryPG) List(ctx context.Context) ([]domain.AutopilotConfig, error) {
	rows, err := r.runner.Query(ctx, sqlinline.QListConfigs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfigs(rows)
}

// GetByID fetches one config.
func (r *ConfigRepositoryPG) GetByID(ctx context.Context, id string) (*domain.AutopilotConfig, error) {
	row := r.runner.QueryRow(ctx, sqlinline.QGetConfig, id)
	cfg, err := scanConfig(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return cfg, nil
}

// AdvanceSchedule moves nextScheduledAt forward and stamps the attempt time.
func (r *ConfigRepositoryPG) AdvanceSchedule(ctx context.Context, configID string, next time.Time, generatedAt time.Time) error {
	_, err := r.runner.Exec(ctx, sqlinline.QAdvanceSchedule, configID, next, generatedAt)
	return err
}

// IncrementStats bumps the generated-video counter and, when the rotation
// pool just completed a full cycle, the pool-cycle counter.
func (r *ConfigRepositoryPG) IncrementStats(ctx context.Context, configID string, poolCycled bool) error {
	_, err := r.runner.Exec(ctx, sqlinline.QIncrementStats, configID, poolCycled)
	return err
}

func scanConfig(row rowScanner) (*domain.AutopilotConfig, error) {
	var cfg domain.AutopilotConfig
	if err := row.Scan(
		&cfg.ID,
		&cfg.StoreID,
		&cfg.CadencePerWeek,
		&cfg.Platforms,
		&cfg.Mode,
		&cfg.Locale,
		&cfg.IsActive,
		&cfg.IsApproved,
		&cfg.NextScheduledAt,
		&cfg.LastGeneratedAt,
		&cfg.VideosGenerated,
		&cfg.PoolCycles,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type configRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanConfigs(rows configRows) ([]domain.AutopilotConfig, error) {
	var configs []domain.AutopilotConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

var _ domain.ConfigRepository = (*ConfigRepositoryPG)(nil)
