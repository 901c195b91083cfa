package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clashpoint/arena-system/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound       = errors.New("tournament not found")
	ErrTournamentInvalidCreator = errors.New("invalid tournament creator reference")
)

type ListTournamentsFilter struct {
	Status   *models.TournamentStatus
	GameName *string
	Mode     *models.TournamentMode
	Limit    int
	Offset   int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetByIDForUpdate берёт блокировку на строку турнира: все проверки
	// предусловий входа/расчёта и их записи идут под этой блокировкой.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateRoom(ctx context.Context, exec SQLExecutor, id int, roomID, roomPassword string) error
	UpdateBannerKey(ctx context.Context, tournamentID int, bannerKey *string) error
	ListDueForOpening(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, title, game_name, mode, match_time, entry_fee, prize_pool, commission_rate,
	per_kill_enabled, per_kill_prize, max_participants, status, room_id, room_password,
	banner_key, created_by, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			title, game_name, mode, match_time, entry_fee, prize_pool, commission_rate,
			per_kill_enabled, per_kill_prize, max_participants, status, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Title, t.GameName, t.Mode, t.MatchTime, t.EntryFee, t.PrizePool, t.CommissionRate,
		t.PerKillEnabled, t.PerKillPrize, t.MaxParticipants, t.Status, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "tournaments_created_by_fkey" {
				return ErrTournamentInvalidCreator
			}
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) scanTournament(row *sql.Row) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID, &t.Title, &t.GameName, &t.Mode, &t.MatchTime, &t.EntryFee, &t.PrizePool,
		&t.CommissionRate, &t.PerKillEnabled, &t.PerKillPrize, &t.MaxParticipants,
		&t.Status, &t.RoomID, &t.RoomPassword, &t.BannerKey, &t.CreatedBy, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament: %w", err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanTournament(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return r.scanTournament(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.GameName != nil {
		query += fmt.Sprintf(" AND game_name = $%d", argID)
		args = append(args, *filter.GameName)
		argID++
	}
	if filter.Mode != nil {
		query += fmt.Sprintf(" AND mode = $%d", argID)
		args = append(args, *filter.Mode)
		argID++
	}

	query += " ORDER BY match_time ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
		argID++
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		err := rows.Scan(
			&t.ID, &t.Title, &t.GameName, &t.Mode, &t.MatchTime, &t.EntryFee, &t.PrizePool,
			&t.CommissionRate, &t.PerKillEnabled, &t.PerKillPrize, &t.MaxParticipants,
			&t.Status, &t.RoomID, &t.RoomPassword, &t.BannerKey, &t.CreatedBy, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE tournaments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament status: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateRoom(ctx context.Context, exec SQLExecutor, id int, roomID, roomPassword string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournaments SET room_id = $1, room_password = $2 WHERE id = $3`,
		roomID, roomPassword, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update tournament room: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, tournamentID int, bannerKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tournaments SET banner_key = $1 WHERE id = $2`, bannerKey, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament banner key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// ListDueForOpening возвращает upcoming-турниры, чьё время матча уже наступило.
// Блокирует строки (SKIP LOCKED), чтобы два прогона планировщика не
// обработали один турнир дважды.
func (r *postgresTournamentRepository) ListDueForOpening(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1 AND match_time <= NOW()
		FOR UPDATE SKIP LOCKED`

	rows, err := executor.QueryContext(ctx, query, models.StatusUpcoming)
	if err != nil {
		return nil, fmt.Errorf("failed to list due tournaments: %w", err)
	}
	defer rows.Close()

	due := make([]*models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		err := rows.Scan(
			&t.ID, &t.Title, &t.GameName, &t.Mode, &t.MatchTime, &t.EntryFee, &t.PrizePool,
			&t.CommissionRate, &t.PerKillEnabled, &t.PerKillPrize, &t.MaxParticipants,
			&t.Status, &t.RoomID, &t.RoomPassword, &t.BannerKey, &t.CreatedBy, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due tournament row: %w", err)
		}
		due = append(due, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due tournament rows: %w", err)
	}
	return due, nil
}
