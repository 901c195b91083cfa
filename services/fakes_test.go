package services

import (
	"context"
	"sort"

	"github.com/clashpoint/arena-system/models"
	"github.com/clashpoint/arena-system/repositories"
)

// In-memory дублёры репозиториев для тестов сервисов. Повторяют контракт
// Postgres-реализаций: типизированные ошибки, уникальные ограничения,
// мутации только внутри переданной "транзакции".

type fakeTxRunner struct {
	beginErr error
	calls    int
}

func (r *fakeTxRunner) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	r.calls++
	if r.beginErr != nil {
		return r.beginErr
	}
	return fn(nil)
}

type fakeUserRepo struct {
	users map[int]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[int]*models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.User, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) ListIDs(ctx context.Context) ([]int, error) {
	ids := make([]int, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *fakeUserRepo) UpdateAvatarKey(ctx context.Context, userID int, avatarKey *string) error {
	user, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.AvatarKey = avatarKey
	return nil
}

func (r *fakeUserRepo) AdjustBalance(ctx context.Context, exec repositories.SQLExecutor, userID int, delta float64) error {
	user, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	if user.WalletBalance+delta < 0 {
		return repositories.ErrInsufficientFunds
	}
	user.WalletBalance += delta
	return nil
}

func (r *fakeUserRepo) balance(id int) float64 {
	return r.users[id].WalletBalance
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	repo := &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
	for _, t := range tournaments {
		repo.tournaments[t.ID] = t
	}
	return repo
}

func (r *fakeTournamentRepo) Create(ctx context.Context, tournament *models.Tournament) error {
	r.tournaments[tournament.ID] = tournament
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	result := make([]models.Tournament, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) UpdateRoom(ctx context.Context, exec repositories.SQLExecutor, id int, roomID, roomPassword string) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.RoomID = &roomID
	t.RoomPassword = &roomPassword
	return nil
}

func (r *fakeTournamentRepo) UpdateBannerKey(ctx context.Context, tournamentID int, bannerKey *string) error {
	t, ok := r.tournaments[tournamentID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = bannerKey
	return nil
}

func (r *fakeTournamentRepo) ListDueForOpening(ctx context.Context, exec repositories.SQLExecutor) ([]*models.Tournament, error) {
	var due []*models.Tournament
	for _, t := range r.tournaments {
		if t.Status == models.StatusUpcoming {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

type fakeParticipantRepo struct {
	nextID       int
	participants []*models.Participant
}

func newFakeParticipantRepo(participants ...*models.Participant) *fakeParticipantRepo {
	repo := &fakeParticipantRepo{nextID: 1}
	for _, p := range participants {
		if p.ID >= repo.nextID {
			repo.nextID = p.ID + 1
		}
		repo.participants = append(repo.participants, p)
	}
	return repo
}

func (r *fakeParticipantRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	for _, existing := range r.participants {
		if existing.TournamentID == p.TournamentID && existing.UserID == p.UserID {
			return repositories.ErrParticipantConflict
		}
		if existing.TournamentID == p.TournamentID && existing.SlotIndex == p.SlotIndex {
			return repositories.ErrParticipantSlotConflict
		}
	}
	p.ID = r.nextID
	r.nextID++
	r.participants = append(r.participants, p)
	return nil
}

func (r *fakeParticipantRepo) FindByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Participant, error) {
	for _, p := range r.participants {
		if p.ID == id {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) FindByUserAndTournament(ctx context.Context, exec repositories.SQLExecutor, userID, tournamentID int) (*models.Participant, error) {
	for _, p := range r.participants {
		if p.UserID == userID && p.TournamentID == tournamentID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	var result []*models.Participant
	for _, p := range r.participants {
		if p.TournamentID == tournamentID {
			clone := *p
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SlotIndex < result[j].SlotIndex })
	return result, nil
}

func (r *fakeParticipantRepo) ListByUser(ctx context.Context, userID int) ([]*models.Participant, error) {
	var result []*models.Participant
	for _, p := range r.participants {
		if p.UserID == userID {
			clone := *p
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *fakeParticipantRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	count := 0
	for _, p := range r.participants {
		if p.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeParticipantRepo) SlotTaken(ctx context.Context, exec repositories.SQLExecutor, tournamentID, slotIndex int) (bool, error) {
	for _, p := range r.participants {
		if p.TournamentID == tournamentID && p.SlotIndex == slotIndex {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeParticipantRepo) SetResult(ctx context.Context, exec repositories.SQLExecutor, id int, status models.ParticipantStatus, kills int) error {
	for _, p := range r.participants {
		if p.ID == id {
			p.Status = status
			p.Kills = kills
			p.SeenByUser = false
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) MarkResultSeen(ctx context.Context, userID, participantID int) error {
	for _, p := range r.participants {
		if p.ID == participantID && p.UserID == userID {
			p.SeenByUser = true
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) byID(id int) *models.Participant {
	for _, p := range r.participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

type fakeTransactionRepo struct {
	entries []models.Transaction
}

func (r *fakeTransactionRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Transaction) error {
	t.ID = len(r.entries) + 1
	r.entries = append(r.entries, *t)
	return nil
}

func (r *fakeTransactionRepo) ListByUser(ctx context.Context, userID int, limit, offset int) ([]models.Transaction, error) {
	var result []models.Transaction
	for _, t := range r.entries {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (r *fakeTransactionRepo) SumByUser(ctx context.Context, userID int) (float64, error) {
	total := 0.0
	for _, t := range r.entries {
		if t.UserID != userID {
			continue
		}
		if t.Type == models.TransactionCredit {
			total += t.Amount
		} else {
			total -= t.Amount
		}
	}
	return total, nil
}

func (r *fakeTransactionRepo) byUser(userID int) []models.Transaction {
	var result []models.Transaction
	for _, t := range r.entries {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result
}
