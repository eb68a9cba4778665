package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/config"
	"github.com/digkill/QuitCoachAPI/internal/database"
	"github.com/digkill/QuitCoachAPI/internal/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(config.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(context.Background(), db, config.DriverSQLite); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *sql.DB, id int64, role models.Role) *models.User {
	t.Helper()
	u, _, err := NewUserRepository(db).Ensure(context.Background(), id, "user@example.com", role)
	if err != nil {
		t.Fatalf("ensure user %d: %v", id, err)
	}
	return u
}

func createPlanWithStage(t *testing.T, db *sql.DB, userID int64, ceiling *int) (*models.QuitPlan, *models.QuitStage) {
	t.Helper()
	ctx := context.Background()
	plan := &models.QuitPlan{UserID: userID, Goal: "quit", StartDate: clock.Date(2024, 3, 1), Status: models.PlanOngoing}
	if err := NewPlanRepository(db).Create(ctx, plan); err != nil {
		t.Fatalf("create plan: %v", err)
	}
	stages := []models.QuitStage{{
		PlanID:            plan.ID,
		Position:          1,
		Name:              "Cut down",
		StartDate:         clock.Date(2024, 3, 1),
		EndDate:           clock.Date(2024, 3, 10),
		Status:            models.StageNotStarted,
		MaxDailyCigarette: ceiling,
	}}
	if err := NewStageRepository(db).CreateBatch(ctx, stages); err != nil {
		t.Fatalf("create stages: %v", err)
	}
	return plan, &stages[0]
}

func TestUserEnsure(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u, created, err := repo.Ensure(ctx, 42, "a@example.com", models.RoleMember)
	if err != nil || !created {
		t.Fatalf("Ensure() = %v, created=%v, err=%v", u, created, err)
	}
	u, created, err = repo.Ensure(ctx, 42, "b@example.com", models.RoleCoach)
	if err != nil || created {
		t.Fatalf("second Ensure() created=%v err=%v", created, err)
	}
	got, err := repo.FindByID(ctx, 42)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Email != "b@example.com" || got.Role != models.RoleCoach {
		t.Errorf("user = %+v, want updated email and role", got)
	}

	tg := int64(777)
	if err := repo.SetTelegramID(ctx, 42, &tg); err != nil {
		t.Fatalf("SetTelegramID() error = %v", err)
	}
	byTG, err := repo.FindByTelegramID(ctx, 777)
	if err != nil || byTG == nil || byTG.ID != 42 {
		t.Fatalf("FindByTelegramID() = %v, %v", byTG, err)
	}

	createUser(t, db, 43, models.RoleMember)
	if err := repo.SetTelegramID(ctx, 43, &tg); !errors.Is(err, ErrDuplicate) {
		t.Errorf("linking the same chat twice: err = %v, want ErrDuplicate", err)
	}
}

func TestProgressInsertRejectsSameCivilDay(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, 1, models.RoleMember)
	ceiling := 2
	plan, stage := createPlanWithStage(t, db, user.ID, &ceiling)
	repo := NewProgressRepository(db)

	rec := func(day time.Time, count int) *models.ProgressRecord {
		return &models.ProgressRecord{UserID: user.ID, PlanID: plan.ID, StageID: stage.ID, RecordDay: day, RecordedAt: time.Now(), CigaretteCount: count}
	}

	if err := repo.Insert(ctx, rec(clock.Date(2024, 3, 1), 5)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := repo.Insert(ctx, rec(clock.Date(2024, 3, 1), 0)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("same day insert err = %v, want ErrDuplicate", err)
	}
	if err := repo.Insert(ctx, rec(clock.Date(2024, 3, 3), 1)); err != nil {
		t.Fatalf("next day insert: %v", err)
	}
	if err := repo.Insert(ctx, rec(clock.Date(2024, 3, 4), 0)); err != nil {
		t.Fatalf("third insert: %v", err)
	}

	count, err := repo.CountForStage(ctx, user.ID, plan.ID, stage.ID)
	if err != nil || count != 3 {
		t.Fatalf("CountForStage() = %d, %v; want 3", count, err)
	}
	over, err := repo.CountOverLimit(ctx, user.ID, plan.ID, stage.ID, ceiling)
	if err != nil || over != 1 {
		t.Fatalf("CountOverLimit() = %d, %v; want 1", over, err)
	}

	totals, err := repo.TotalsForPlan(ctx, user.ID, plan.ID)
	if err != nil {
		t.Fatalf("TotalsForPlan() error = %v", err)
	}
	if totals.Records != 3 || totals.NoSmokeDays != 1 || totals.TotalCigarettes != 6 {
		t.Errorf("totals = %+v", totals)
	}

	in, err := repo.ExistsInRange(ctx, stage.ID, clock.Date(2024, 3, 2), clock.Date(2024, 3, 3))
	if err != nil || !in {
		t.Errorf("ExistsInRange(2..3) = %v, %v; want true", in, err)
	}
	in, err = repo.ExistsInRange(ctx, stage.ID, clock.Date(2024, 3, 5), clock.Date(2024, 3, 10))
	if err != nil || in {
		t.Errorf("ExistsInRange(5..10) = %v, %v; want false", in, err)
	}

	list, err := repo.ListForStage(ctx, user.ID, plan.ID, stage.ID)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListForStage() = %d records, %v", len(list), err)
	}
	if !list[0].RecordDay.Equal(clock.Date(2024, 3, 1)) {
		t.Errorf("first record day = %v", list[0].RecordDay)
	}

	byStage, err := repo.CountByStage(ctx, plan.ID)
	if err != nil || byStage[stage.ID] != 3 {
		t.Errorf("CountByStage() = %v, %v", byStage, err)
	}
}

func TestPlanSingleOngoingPerUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, 1, models.RoleMember)
	repo := NewPlanRepository(db)

	first := &models.QuitPlan{UserID: user.ID, Goal: "quit", StartDate: clock.Date(2024, 1, 1), Status: models.PlanOngoing}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create first plan: %v", err)
	}
	second := &models.QuitPlan{UserID: user.ID, Goal: "again", StartDate: clock.Date(2024, 1, 2), Status: models.PlanOngoing}
	if err := repo.Create(ctx, second); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second ongoing plan err = %v, want ErrDuplicate", err)
	}

	if err := repo.UpdateStatus(ctx, first.ID, models.PlanCancelled); err != nil {
		t.Fatalf("cancel plan: %v", err)
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("plan after cancellation: %v", err)
	}
	ongoing, err := repo.GetOngoingForUser(ctx, user.ID)
	if err != nil || ongoing == nil || ongoing.ID != second.ID {
		t.Fatalf("GetOngoingForUser() = %v, %v", ongoing, err)
	}
	if !ongoing.StartDate.Equal(clock.Date(2024, 1, 2)) {
		t.Errorf("start date = %v", ongoing.StartDate)
	}
}

func TestGoalDraftUpsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, 1, models.RoleMember)
	repo := NewPlanRepository(db)

	if d, err := repo.GetGoalDraft(ctx, user.ID); err != nil || d != nil {
		t.Fatalf("GetGoalDraft() before save = %v, %v", d, err)
	}
	if err := repo.SaveGoalDraft(ctx, &models.GoalDraft{UserID: user.ID, Goal: "first"}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if err := repo.SaveGoalDraft(ctx, &models.GoalDraft{UserID: user.ID, Goal: "second", Reasons: "health"}); err != nil {
		t.Fatalf("resave draft: %v", err)
	}
	d, err := repo.GetGoalDraft(ctx, user.ID)
	if err != nil || d == nil || d.Goal != "second" || d.Reasons != "health" {
		t.Fatalf("GetGoalDraft() = %+v, %v", d, err)
	}
}

func TestBadgeGrantOnce(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, 1, models.RoleMember)
	repo := NewBadgeRepository(db)

	badge := &models.Badge{Name: "3 days", Condition: models.BadgeCondition{Type: models.ConditionNoSmokeDays, Value: 3, Unit: "days"}}
	if err := repo.Create(ctx, badge); err != nil {
		t.Fatalf("create badge: %v", err)
	}
	if err := repo.Create(ctx, &models.Badge{Name: "3 days", Condition: badge.Condition}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate badge name err = %v", err)
	}
	if err := repo.Grant(ctx, &models.UserBadge{UserID: user.ID, BadgeID: badge.ID}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := repo.Grant(ctx, &models.UserBadge{UserID: user.ID, BadgeID: badge.ID}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second grant err = %v, want ErrDuplicate", err)
	}
	owned, err := repo.ListForUser(ctx, user.ID)
	if err != nil || len(owned) != 1 || owned[0].Badge == nil || owned[0].Badge.Name != "3 days" {
		t.Fatalf("ListForUser() = %+v, %v", owned, err)
	}
	ids, err := repo.GrantedBadgeIDs(ctx, user.ID)
	if err != nil || !ids[badge.ID] {
		t.Fatalf("GrantedBadgeIDs() = %v, %v", ids, err)
	}
}

func TestMembershipActiveForUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, 1, models.RoleMember)
	repo := NewMembershipRepository(db)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	expired := &models.Membership{UserID: user.ID, Tier: "pro", IsPro: true, CanCreatePlan: true, ExpiresAt: now.Add(-time.Hour)}
	if err := repo.Create(ctx, expired); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	if m, err := repo.ActiveForUser(ctx, user.ID, now); err != nil || m != nil {
		t.Fatalf("ActiveForUser() with only expired = %v, %v", m, err)
	}
	basic := &models.Membership{UserID: user.ID, Tier: "basic", CanCreatePlan: true, ExpiresAt: now.Add(24 * time.Hour)}
	if err := repo.Create(ctx, basic); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	m, err := repo.ActiveForUser(ctx, user.ID, now)
	if err != nil || m == nil || m.Tier != "basic" || m.IsPro || !m.CanCreatePlan {
		t.Fatalf("ActiveForUser() = %+v, %v", m, err)
	}
}

func TestCoachCurrentUsersIsDerived(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	coach := createUser(t, db, 10, models.RoleCoach)
	member := createUser(t, db, 1, models.RoleMember)
	coaches := NewCoachRepository(db)
	plans := NewPlanRepository(db)

	if err := coaches.Upsert(ctx, coach.ID, "ex-smoker", 2); err != nil {
		t.Fatalf("upsert coach: %v", err)
	}
	plan, _ := createPlanWithStage(t, db, member.ID, nil)
	if err := plans.SetCoach(ctx, plan.ID, &coach.ID); err != nil {
		t.Fatalf("set coach: %v", err)
	}

	c, err := coaches.Get(ctx, coach.ID)
	if err != nil || c == nil || c.CurrentUsers != 1 || c.MaxUsers != 2 {
		t.Fatalf("Get() = %+v, %v", c, err)
	}
	if err := plans.UpdateStatus(ctx, plan.ID, models.PlanCompleted); err != nil {
		t.Fatalf("complete plan: %v", err)
	}
	list, err := coaches.List(ctx)
	if err != nil || len(list) != 1 || list[0].CurrentUsers != 0 {
		t.Fatalf("List() = %+v, %v", list, err)
	}
}

func TestStageSweepQueries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, 1, models.RoleMember)
	_, stage := createPlanWithStage(t, db, user.ID, nil)
	repo := NewStageRepository(db)

	if got, err := repo.ListOpenEndedBefore(ctx, clock.Date(2024, 3, 10)); err != nil || len(got) != 0 {
		t.Fatalf("ListOpenEndedBefore(last day) = %v, %v; want none", got, err)
	}
	got, err := repo.ListOpenEndedBefore(ctx, clock.Date(2024, 3, 11))
	if err != nil || len(got) != 1 {
		t.Fatalf("ListOpenEndedBefore(day after) = %v, %v; want 1", got, err)
	}
	active, err := repo.ListActiveOn(ctx, clock.Date(2024, 3, 5))
	if err != nil || len(active) != 1 {
		t.Fatalf("ListActiveOn() = %v, %v", active, err)
	}

	changed, err := repo.MarkSkippedIfOpen(ctx, stage.ID)
	if err != nil || !changed {
		t.Fatalf("MarkSkippedIfOpen() = %v, %v", changed, err)
	}
	changed, err = repo.MarkSkippedIfOpen(ctx, stage.ID)
	if err != nil || changed {
		t.Fatalf("second MarkSkippedIfOpen() = %v, %v; want no change", changed, err)
	}
}

func TestNotificationsMarkRead(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, 1, models.RoleMember)
	other := createUser(t, db, 2, models.RoleMember)
	repo := NewNotificationRepository(db)

	n := &models.Notification{UserID: user.ID, Kind: models.NotifyBadge, Message: "hi"}
	if err := repo.Create(ctx, n); err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if ok, err := repo.MarkRead(ctx, other.ID, n.ID, time.Now()); err != nil || ok {
		t.Fatalf("MarkRead() by other user = %v, %v", ok, err)
	}
	if ok, err := repo.MarkRead(ctx, user.ID, n.ID, time.Now()); err != nil || !ok {
		t.Fatalf("MarkRead() = %v, %v", ok, err)
	}
	list, err := repo.ListForUser(ctx, user.ID, 10)
	if err != nil || len(list) != 1 || list[0].ReadAt == nil {
		t.Fatalf("ListForUser() = %+v, %v", list, err)
	}
}
