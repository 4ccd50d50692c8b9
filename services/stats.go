package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/darezone/api/models"
	"github.com/darezone/api/utils"
)

// Leaderboard sort keys.
const (
	SortByPoints         = "points"
	SortByStreak         = "streak"
	SortByCompletionRate = "completion_rate"
)

// StatsService computes leaderboards, dashboards and history from membership rows.
type StatsService struct {
	db    *gorm.DB
	guard *MembershipGuard
	cal   *Calendar
	cache Cache
}

// NewStatsService creates the aggregator. cache may be nil.
func NewStatsService(db *gorm.DB, guard *MembershipGuard, cal *Calendar, cache Cache) *StatsService {
	return &StatsService{db: db, guard: guard, cal: cal, cache: cache}
}

// LeaderboardEntry is one ranked member.
type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	UserID         string  `json:"user_id"`
	DisplayName    string  `json:"display_name"`
	AvatarURL      string  `json:"avatar_url,omitempty"`
	Points         int     `json:"points"`
	CurrentStreak  int     `json:"current_streak"`
	LongestStreak  int     `json:"longest_streak"`
	TotalCheckins  int     `json:"total_checkins"`
	CompletionRate float64 `json:"completion_rate"`
	IsCurrentUser  bool    `json:"is_current_user"`
	joinedAt       time.Time
}

// LeaderboardResult is a ranked member list plus the caller's rank.
type LeaderboardResult struct {
	ChallengeID  string             `json:"challenge_id"`
	SortBy       string             `json:"sort_by"`
	Entries      []LeaderboardEntry `json:"entries"`
	MyRank       int                `json:"my_rank"`
	TotalMembers int                `json:"total_members"`
}

// elapsedDays counts calendar days from start to min(today, end) inclusive.
func elapsedDays(start, end, today string) int {
	upto := today
	if end < today {
		upto = end
	}
	d, err := models.DaysBetween(start, upto)
	if err != nil || d < 0 {
		return 0
	}
	return d + 1
}

// completionRate is checkins / (habits * days) as a percentage capped at 100.
func completionRate(checkins, habits, days int) float64 {
	if habits <= 0 || days <= 0 {
		return 0
	}
	r := float64(checkins) / float64(habits*days) * 100
	if r > 100 {
		r = 100
	}
	return round2(r)
}

func (s *StatsService) habitCount(tx *gorm.DB, challengeID string) (int, error) {
	var n int64
	if err := tx.Model(&models.ChallengeHabit{}).Where("challenge_id = ?", challengeID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count habits: %w", err)
	}
	return int(n), nil
}

// Leaderboard ranks the active members of a challenge by sortBy, earliest joiner first on ties.
func (s *StatsService) Leaderboard(ctx context.Context, userID, challengeID, sortBy string) (*LeaderboardResult, error) {
	switch sortBy {
	case "":
		sortBy = SortByPoints
	case SortByPoints, SortByStreak, SortByCompletionRate:
	default:
		return nil, badRequest(40081, "sort_by must be points, streak or completion_rate")
	}
	tx := s.db.WithContext(ctx)
	ch, err := findChallenge(tx, challengeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.Verify(ctx, challengeID, userID); err != nil {
		return nil, err
	}

	today := s.cal.Today()
	key := leaderboardPrefix(challengeID) + sortBy + ":" + today
	var entries []LeaderboardEntry
	if s.cache == nil || !s.cache.GetJSON(ctx, key, &entries) {
		entries, err = s.rank(tx, ch, sortBy, today)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.SetJSON(ctx, key, entries)
		}
	}

	out := &LeaderboardResult{ChallengeID: challengeID, SortBy: sortBy, Entries: entries, TotalMembers: len(entries)}
	for i := range out.Entries {
		if out.Entries[i].UserID == userID {
			out.Entries[i].IsCurrentUser = true
			out.MyRank = out.Entries[i].Rank
		}
	}
	return out, nil
}

func (s *StatsService) rank(tx *gorm.DB, ch *models.Challenge, sortBy, today string) ([]LeaderboardEntry, error) {
	habits, err := s.habitCount(tx, ch.ID)
	if err != nil {
		return nil, err
	}
	days := elapsedDays(ch.StartDate, ch.EndDate, today)

	var members []models.ChallengeMember
	if err := tx.Preload("User").Where("challenge_id = ? AND status = ?", ch.ID, models.MemberActive).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	entries := make([]LeaderboardEntry, 0, len(members))
	for _, m := range members {
		entries = append(entries, LeaderboardEntry{
			UserID:         m.UserID,
			DisplayName:    m.User.DisplayName,
			AvatarURL:      m.User.AvatarURL,
			Points:         m.PointsEarned,
			CurrentStreak:  m.CurrentStreak,
			LongestStreak:  m.LongestStreak,
			TotalCheckins:  m.TotalCheckins,
			CompletionRate: completionRate(m.TotalCheckins, habits, days),
			joinedAt:       m.JoinedAt,
		})
	}

	key := func(e LeaderboardEntry) float64 {
		switch sortBy {
		case SortByStreak:
			return float64(e.CurrentStreak)
		case SortByCompletionRate:
			return e.CompletionRate
		}
		return float64(e.Points)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ki, kj := key(entries[i]), key(entries[j])
		if ki != kj {
			return ki > kj
		}
		return entries[i].joinedAt.Before(entries[j].joinedAt)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// ChallengeSummary is the challenge header of a stats response.
type ChallengeSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	DaysElapsed int    `json:"days_elapsed"`
	DaysTotal   int    `json:"days_total"`
}

// HabitStat is the aggregate of one habit inside a challenge.
type HabitStat struct {
	HabitID        string  `json:"habit_id"`
	Name           string  `json:"name"`
	Icon           string  `json:"icon,omitempty"`
	TotalCheckins  int     `json:"total_checkins"`
	TodayCheckins  int     `json:"today_checkins"`
	CompletionRate float64 `json:"completion_rate"`
}

// ChallengeStats summarises a whole challenge.
type ChallengeStats struct {
	Challenge         ChallengeSummary   `json:"challenge"`
	TotalMembers      int                `json:"total_members"`
	ActiveMembers     int                `json:"active_members"`
	TotalCheckins     int                `json:"total_checkins"`
	AverageCompletion float64            `json:"average_completion"`
	AveragePoints     float64            `json:"average_points"`
	AverageStreak     float64            `json:"average_streak"`
	TopPerformers     []LeaderboardEntry `json:"top_performers"`
	Habits            []HabitStat        `json:"habits"`
}

// ChallengeStats aggregates members and habits of one challenge.
func (s *StatsService) ChallengeStats(ctx context.Context, userID, challengeID string) (*ChallengeStats, error) {
	tx := s.db.WithContext(ctx)
	ch, err := findChallenge(tx, challengeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.Verify(ctx, challengeID, userID); err != nil {
		return nil, err
	}
	today := s.cal.Today()
	ranked, err := s.rank(tx, ch, SortByPoints, today)
	if err != nil {
		return nil, err
	}
	var total int64
	if err := tx.Model(&models.ChallengeMember{}).Where("challenge_id = ?", challengeID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	days := elapsedDays(ch.StartDate, ch.EndDate, today)
	span, _ := models.DaysBetween(ch.StartDate, ch.EndDate)

	out := &ChallengeStats{
		Challenge: ChallengeSummary{
			ID: ch.ID, Name: ch.Name, Status: ch.Status, StartDate: ch.StartDate, EndDate: ch.EndDate,
			DaysElapsed: days, DaysTotal: span + 1,
		},
		TotalMembers:  int(total),
		ActiveMembers: len(ranked),
		TopPerformers: []LeaderboardEntry{},
		Habits:        []HabitStat{},
	}
	var sumCompletion float64
	var sumPoints, sumStreak int
	for _, e := range ranked {
		out.TotalCheckins += e.TotalCheckins
		sumCompletion += e.CompletionRate
		sumPoints += e.Points
		sumStreak += e.CurrentStreak
	}
	if n := len(ranked); n > 0 {
		out.AverageCompletion = round2(sumCompletion / float64(n))
		out.AveragePoints = round2(float64(sumPoints) / float64(n))
		out.AverageStreak = round2(float64(sumStreak) / float64(n))
	}
	for i, e := range ranked {
		if i == 10 {
			break
		}
		if e.UserID == userID {
			e.IsCurrentUser = true
		}
		out.TopPerformers = append(out.TopPerformers, e)
	}

	var links []models.ChallengeHabit
	if err := tx.Preload("Habit").Where("challenge_id = ?", challengeID).Order("display_order ASC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("load habits: %w", err)
	}
	var todayRows []struct {
		HabitID string
		N       int
	}
	if err := tx.Model(&models.Checkin{}).Select("habit_id, COUNT(*) AS n").
		Where("challenge_id = ? AND checkin_date = ?", challengeID, today).
		Group("habit_id").Scan(&todayRows).Error; err != nil {
		return nil, fmt.Errorf("count today's check-ins: %w", err)
	}
	todayBy := make(map[string]int, len(todayRows))
	for _, r := range todayRows {
		todayBy[r.HabitID] = r.N
	}
	for _, l := range links {
		out.Habits = append(out.Habits, HabitStat{
			HabitID:        l.HabitID,
			Name:           l.DisplayName(),
			Icon:           l.DisplayIcon(),
			TotalCheckins:  l.TotalCheckins,
			TodayCheckins:  todayBy[l.HabitID],
			CompletionRate: completionRate(l.TotalCheckins, len(ranked), days),
		})
	}
	return out, nil
}

// ProfileTotals are the aggregate counters mirrored on a profile.
type ProfileTotals struct {
	CurrentStreak            int `json:"current_streak"`
	LongestStreak            int `json:"longest_streak"`
	TotalCheckIns            int `json:"total_check_ins"`
	TotalChallengesCompleted int `json:"total_challenges_completed"`
	Points                   int `json:"points"`
}

// ActiveChallenge is a dashboard card for one running challenge.
type ActiveChallenge struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Status         string  `json:"status"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	DaysLeft       int     `json:"days_left"`
	MemberCount    int     `json:"member_count"`
	TotalHabits    int     `json:"total_habits"`
	CheckedToday   int     `json:"checked_in_today"`
	MyPoints       int     `json:"my_points"`
	MyStreak       int     `json:"my_streak"`
	MyRank         int     `json:"my_rank"`
	CompletionRate float64 `json:"completion_rate"`
}

// Dashboard is the caller's home screen.
type Dashboard struct {
	Stats            ProfileTotals     `json:"stats"`
	ActiveChallenges []ActiveChallenge `json:"active_challenges"`
	RecentCompleted  []HistoryItem     `json:"recent_completed"`
}

type membershipRow struct {
	models.Challenge
	MemberStatus string
	PointsEarned int
	MyStreak     int
	MyLongest    int
	MyCheckins   int
	MyJoinedAt   time.Time
}

func (s *StatsService) memberships(tx *gorm.DB, userID string) *gorm.DB {
	return tx.Table("challenge_members AS m").
		Joins("JOIN challenges c ON c.id = m.challenge_id").
		Where("m.user_id = ?", userID).
		Select("c.*, m.status AS member_status, m.points_earned AS points_earned, m.current_streak AS my_streak, " +
			"m.longest_streak AS my_longest, m.total_checkins AS my_checkins, m.joined_at AS my_joined_at")
}

// Profile returns the caller's profile counters, with completed challenges counted from memberships.
func (s *StatsService) Profile(ctx context.Context, userID string) (ProfileTotals, error) {
	tx := s.db.WithContext(ctx)
	var p models.UserProfile
	if err := tx.First(&p, "id = ?", userID).Error; err != nil {
		if isNotFound(err) {
			return ProfileTotals{}, ErrUserNotFound
		}
		return ProfileTotals{}, fmt.Errorf("load profile: %w", err)
	}
	completed, err := s.completedCount(tx, userID)
	if err != nil {
		return ProfileTotals{}, err
	}
	return ProfileTotals{
		CurrentStreak:            p.CurrentStreak,
		LongestStreak:            p.LongestStreak,
		TotalCheckIns:            p.TotalCheckIns,
		TotalChallengesCompleted: completed,
		Points:                   p.Points,
	}, nil
}

func (s *StatsService) completedCount(tx *gorm.DB, userID string) (int, error) {
	var n int64
	err := tx.Table("challenge_members AS m").Joins("JOIN challenges c ON c.id = m.challenge_id").
		Where("m.user_id = ? AND m.status = ? AND c.status = ?", userID, models.MemberActive, models.ChallengeCompleted).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count completed challenges: %w", err)
	}
	return int(n), nil
}

// Dashboard returns profile stats, running challenges with the caller's rank and the five latest completed ones.
func (s *StatsService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	totals, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx)
	today := s.cal.Today()

	var rows []membershipRow
	if err := s.memberships(tx, userID).
		Where("m.status = ? AND c.status IN ?", models.MemberActive, []string{models.ChallengePending, models.ChallengeActive}).
		Order("c.end_date ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load active challenges: %w", err)
	}

	out := &Dashboard{Stats: totals, ActiveChallenges: []ActiveChallenge{}}
	for _, r := range rows {
		habits, err := s.habitCount(tx, r.ID)
		if err != nil {
			return nil, err
		}
		var ahead int64
		if err := tx.Model(&models.ChallengeMember{}).
			Where("challenge_id = ? AND status = ? AND (points_earned > ? OR (points_earned = ? AND joined_at < ?))",
				r.ID, models.MemberActive, r.PointsEarned, r.PointsEarned, r.MyJoinedAt).
			Count(&ahead).Error; err != nil {
			return nil, fmt.Errorf("rank member: %w", err)
		}
		var checked int64
		if err := tx.Model(&models.Checkin{}).
			Where("challenge_id = ? AND user_id = ? AND checkin_date = ?", r.ID, userID, today).
			Count(&checked).Error; err != nil {
			return nil, fmt.Errorf("count today's check-ins: %w", err)
		}
		left, _ := models.DaysBetween(today, r.EndDate)
		if left < 0 {
			left = 0
		}
		out.ActiveChallenges = append(out.ActiveChallenges, ActiveChallenge{
			ID:             r.ID,
			Name:           r.Name,
			Status:         r.Status,
			StartDate:      r.StartDate,
			EndDate:        r.EndDate,
			DaysLeft:       left,
			MemberCount:    r.MemberCount,
			TotalHabits:    habits,
			CheckedToday:   int(checked),
			MyPoints:       r.PointsEarned,
			MyStreak:       r.MyStreak,
			MyRank:         int(ahead) + 1,
			CompletionRate: completionRate(r.MyCheckins, habits, elapsedDays(r.StartDate, r.EndDate, today)),
		})
	}

	recent, err := s.History(ctx, userID, HistoryFilter{Status: models.ChallengeCompleted}, PageQuery{Page: 1, Limit: 5})
	if err != nil {
		return nil, err
	}
	out.RecentCompleted = recent.Items.([]HistoryItem)
	return out, nil
}

// HistoryFilter narrows History. Status is one of completed, failed, left or active.
type HistoryFilter struct {
	Status string
	Search string
}

// HistoryItem is one past or present participation.
type HistoryItem struct {
	ChallengeID    string  `json:"challenge_id"`
	Name           string  `json:"name"`
	Status         string  `json:"status"`
	MemberStatus   string  `json:"member_status"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	MemberCount    int     `json:"member_count"`
	PointsEarned   int     `json:"points_earned"`
	LongestStreak  int     `json:"longest_streak"`
	TotalCheckins  int     `json:"total_checkins"`
	CompletionRate float64 `json:"completion_rate"`
}

// History lists the caller's challenges by end date, newest first.
func (s *StatsService) History(ctx context.Context, userID string, f HistoryFilter, q PageQuery) (*utils.Page, error) {
	q = q.Normalize(20)
	tx := s.db.WithContext(ctx)
	base := tx.Table("challenge_members AS m").Joins("JOIN challenges c ON c.id = m.challenge_id").Where("m.user_id = ?", userID)
	switch f.Status {
	case "":
	case models.ChallengeCompleted, models.ChallengeFailed:
		base = base.Where("c.status = ?", f.Status)
	case "left":
		base = base.Where("m.status IN ?", []string{models.MemberLeft, models.MemberKicked})
	case models.ChallengeActive:
		base = base.Where("m.status = ? AND c.status = ?", models.MemberActive, models.ChallengeActive)
	default:
		return nil, badRequest(40082, "status must be completed, failed, left or active")
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		base = base.Where("LOWER(c.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}
	var rows []membershipRow
	if err := base.Select("c.*, m.status AS member_status, m.points_earned AS points_earned, m.current_streak AS my_streak, " +
		"m.longest_streak AS my_longest, m.total_checkins AS my_checkins, m.joined_at AS my_joined_at").
		Order("c.end_date DESC").Order("c.id ASC").
		Offset(q.Offset()).Limit(q.Limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	today := s.cal.Today()
	items := make([]HistoryItem, 0, len(rows))
	for _, r := range rows {
		habits, err := s.habitCount(tx, r.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, HistoryItem{
			ChallengeID:    r.ID,
			Name:           r.Name,
			Status:         r.Status,
			MemberStatus:   r.MemberStatus,
			StartDate:      r.StartDate,
			EndDate:        r.EndDate,
			MemberCount:    r.MemberCount,
			PointsEarned:   r.PointsEarned,
			LongestStreak:  r.MyLongest,
			TotalCheckins:  r.MyCheckins,
			CompletionRate: completionRate(r.MyCheckins, habits, elapsedDays(r.StartDate, r.EndDate, today)),
		})
	}
	page := utils.NewPage(items, total, q.Page, q.Limit)
	return &page, nil
}

// ReconcileReport compares stored profile counters with totals rebuilt from memberships.
type ReconcileReport struct {
	UserID       string        `json:"user_id"`
	Stored       ProfileTotals `json:"stored"`
	Computed     ProfileTotals `json:"computed"`
	LedgerPoints int           `json:"ledger_points"`
	Drift        bool          `json:"drift"`
	Applied      bool          `json:"applied"`
}

// ReconcileProfile rebuilds a profile's counters from membership rows and the points ledger.
// When apply is true and drift is found the profile is rewritten.
func (s *StatsService) ReconcileProfile(ctx context.Context, userID string, apply bool) (*ReconcileReport, error) {
	tx := s.db.WithContext(ctx)
	var p models.UserProfile
	if err := tx.First(&p, "id = ?", userID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	var agg struct {
		Checkins int
		Points   int
		Longest  int
	}
	if err := tx.Model(&models.ChallengeMember{}).
		Select("COALESCE(SUM(total_checkins), 0) AS checkins, COALESCE(SUM(points_earned), 0) AS points, COALESCE(MAX(longest_streak), 0) AS longest").
		Where("user_id = ?", userID).Scan(&agg).Error; err != nil {
		return nil, fmt.Errorf("sum memberships: %w", err)
	}
	var ledger int
	if err := tx.Model(&models.PointsLedgerEntry{}).Select("COALESCE(SUM(points), 0)").
		Where("user_id = ?", userID).Scan(&ledger).Error; err != nil {
		return nil, fmt.Errorf("sum ledger: %w", err)
	}
	completed, err := s.completedCount(tx, userID)
	if err != nil {
		return nil, err
	}

	r := &ReconcileReport{
		UserID: userID,
		Stored: ProfileTotals{
			CurrentStreak:            p.CurrentStreak,
			LongestStreak:            p.LongestStreak,
			TotalCheckIns:            p.TotalCheckIns,
			TotalChallengesCompleted: p.TotalChallengesCompleted,
			Points:                   p.Points,
		},
		Computed: ProfileTotals{
			CurrentStreak:            p.CurrentStreak,
			LongestStreak:            agg.Longest,
			TotalCheckIns:            agg.Checkins,
			TotalChallengesCompleted: completed,
			Points:                   agg.Points,
		},
		LedgerPoints: ledger,
	}
	if r.Computed.LongestStreak < p.CurrentStreak {
		r.Computed.LongestStreak = p.CurrentStreak
	}
	r.Drift = r.Stored != r.Computed || ledger != agg.Points
	if r.Drift {
		logger().Sugar().Warnf("profile %s drift: stored=%+v computed=%+v ledger=%d", userID, r.Stored, r.Computed, ledger)
	}
	if apply && r.Stored != r.Computed {
		if err := tx.Model(&models.UserProfile{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"longest_streak":             r.Computed.LongestStreak,
			"total_check_ins":            r.Computed.TotalCheckIns,
			"total_challenges_completed": r.Computed.TotalChallengesCompleted,
			"points":                     r.Computed.Points,
		}).Error; err != nil {
			return nil, fmt.Errorf("apply reconcile: %w", err)
		}
		r.Applied = true
	}
	return r, nil
}
