package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/darezone/api/models"
	"github.com/darezone/api/utils"
)

const maxCaptionRunes = 500

// CheckinInput is one check-in request. At least one evidence field must be non-blank.
type CheckinInput struct {
	ChallengeID string
	HabitID     string
	PhotoURL    string
	VideoURL    string
	Caption     string
}

// CheckinResult reports the created check-in and its streak bookkeeping.
type CheckinResult struct {
	Checkin        models.Checkin `json:"checkin"`
	NewStreak      int            `json:"new_streak"`
	PointsEarned   int            `json:"points_earned"`
	IsStreakBroken bool           `json:"is_streak_broken"`
	Message        string         `json:"message"`
}

// CheckinService records daily habit check-ins and maintains streaks and points.
type CheckinService struct {
	db         *gorm.DB
	guard      *MembershipGuard
	notifier   Notifier
	cal        *Calendar
	cache      Cache
	points     PointsSchedule
	milestones map[int]bool
}

// NewCheckinService creates the engine. cache may be nil.
func NewCheckinService(db *gorm.DB, guard *MembershipGuard, notifier Notifier, cal *Calendar, cache Cache, points PointsSchedule, milestones []int) *CheckinService {
	m := make(map[int]bool, len(milestones))
	for _, v := range milestones {
		m[v] = true
	}
	return &CheckinService{db: db, guard: guard, notifier: notifier, cal: cal, cache: cache, points: points, milestones: m}
}

// Create records today's check-in for one habit. The membership row is locked for the
// duration of the transaction and the unique index rejects concurrent duplicates.
func (s *CheckinService) Create(ctx context.Context, userID string, in CheckinInput) (*CheckinResult, error) {
	photo := strings.TrimSpace(in.PhotoURL)
	video := strings.TrimSpace(in.VideoURL)
	caption := utils.SanitizeText(in.Caption)
	if photo == "" && video == "" && caption == "" {
		utils.CheckinsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidEvidence
	}
	if len([]rune(caption)) > maxCaptionRunes {
		utils.CheckinsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrCaptionTooLong
	}

	today := s.cal.Today()
	res := &CheckinResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := findMember(tx.Clauses(clause.Locking{Strength: "UPDATE"}), in.ChallengeID, userID)
		if err != nil {
			return err
		}
		if !member.IsActive() {
			return ErrNotActiveMember
		}

		var link models.ChallengeHabit
		if err := tx.Where("challenge_id = ? AND habit_id = ?", in.ChallengeID, in.HabitID).First(&link).Error; err != nil {
			if isNotFound(err) {
				return ErrHabitNotInChallenge
			}
			return err
		}

		ch, err := findChallenge(tx, in.ChallengeID)
		if err != nil {
			return err
		}
		if ch.Status != models.ChallengePending && ch.Status != models.ChallengeActive {
			return ErrChallengeNotOpen
		}

		var dup int64
		if err := tx.Model(&models.Checkin{}).
			Where("challenge_id = ? AND habit_id = ? AND user_id = ? AND checkin_date = ?", in.ChallengeID, in.HabitID, userID, today).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return ErrDuplicateCheckin
		}

		streak, broken, err := s.nextStreak(tx, userID, in.ChallengeID, in.HabitID, today)
		if err != nil {
			return err
		}
		// a check-in deleted and re-created on the same day restores the row without a second award
		var awarded int64
		if err := tx.Model(&models.PointsLedgerEntry{}).
			Where("user_id = ? AND challenge_id = ? AND habit_id = ? AND checkin_date = ?", userID, in.ChallengeID, in.HabitID, today).
			Count(&awarded).Error; err != nil {
			return err
		}
		points, counted := s.points.Award(streak), 1
		if awarded > 0 {
			points, counted = 0, 0
		}
		now := s.cal.Now()

		c := models.Checkin{
			ChallengeID:   in.ChallengeID,
			HabitID:       in.HabitID,
			UserID:        userID,
			CheckinDate:   today,
			Status:        models.CheckinCompleted,
			PhotoURL:      photo,
			VideoURL:      video,
			Caption:       caption,
			IsOnTime:      true,
			StreakCount:   streak,
			PointsAwarded: points,
		}
		if err := tx.Create(&c).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateCheckin
			}
			return err
		}

		longest := member.LongestStreak
		if streak > longest {
			longest = streak
		}
		if err := tx.Model(&models.ChallengeMember{}).Where("id = ?", member.ID).Updates(map[string]interface{}{
			"current_streak":  streak,
			"longest_streak":  longest,
			"total_checkins":  gorm.Expr("total_checkins + ?", counted),
			"points_earned":   gorm.Expr("points_earned + ?", points),
			"last_checkin_at": now,
		}).Error; err != nil {
			return err
		}
		if counted > 0 {
			if err := tx.Model(&models.ChallengeHabit{}).Where("id = ?", link.ID).
				UpdateColumn("total_checkins", gorm.Expr("total_checkins + 1")).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.PointsLedgerEntry{
				UserID:      userID,
				ChallengeID: in.ChallengeID,
				HabitID:     in.HabitID,
				CheckinID:   c.ID,
				CheckinDate: today,
				Points:      points,
				Reason:      "checkin",
			}).Error; err != nil {
				return err
			}
		}
		live, err := s.liveStreak(tx, userID, today)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.UserProfile{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"total_check_ins": gorm.Expr("total_check_ins + ?", counted),
			"points":          gorm.Expr("points + ?", points),
			"current_streak":  live,
			"longest_streak":  gorm.Expr("CASE WHEN longest_streak < ? THEN ? ELSE longest_streak END", streak, streak),
		}).Error; err != nil {
			return err
		}

		res.Checkin = c
		res.NewStreak = streak
		res.PointsEarned = points
		res.IsStreakBroken = broken
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateCheckin) {
			utils.CheckinsTotal.WithLabelValues("duplicate").Inc()
			return nil, err
		}
		if KindOf(err) != KindInternal {
			utils.CheckinsTotal.WithLabelValues("rejected").Inc()
			return nil, err
		}
		utils.CheckinsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create check-in: %w", err)
	}
	utils.CheckinsTotal.WithLabelValues("created").Inc()

	res.Message = checkinMessage(res.NewStreak, res.PointsEarned, res.IsStreakBroken)
	invalidate(ctx, s.cache, leaderboardPrefix(in.ChallengeID))
	if s.milestones[res.NewStreak] {
		s.notifier.Notify(ctx, NotificationInput{
			UserID: userID,
			Type:   models.NotifyStreakMilestone,
			Title:  fmt.Sprintf("%d day streak!", res.NewStreak),
			Body:   fmt.Sprintf("You've kept it going for %d days. Keep it up!", res.NewStreak),
			Data:   map[string]interface{}{"challenge_id": in.ChallengeID, "habit_id": in.HabitID, "streak": res.NewStreak},
		})
	}
	return res, nil
}

// nextStreak derives the streak a check-in on today produces from the previous one for the same habit.
func (s *CheckinService) nextStreak(tx *gorm.DB, userID, challengeID, habitID, today string) (int, bool, error) {
	var prev models.Checkin
	err := tx.Where("challenge_id = ? AND habit_id = ? AND user_id = ?", challengeID, habitID, userID).
		Order("checkin_date DESC").First(&prev).Error
	if err != nil {
		if isNotFound(err) {
			return 1, false, nil
		}
		return 0, false, err
	}
	gap, err := models.DaysBetween(prev.CheckinDate, today)
	if err != nil {
		return 0, false, fmt.Errorf("previous check-in date %q: %w", prev.CheckinDate, err)
	}
	if gap <= 1 {
		return prev.StreakCount + 1, false, nil
	}
	return 1, true, nil
}

// liveStreak is the user's best streak still alive on today: the highest streak_count among
// check-ins dated today or yesterday, across every challenge and habit.
func (s *CheckinService) liveStreak(tx *gorm.DB, userID, today string) (int, error) {
	day, err := models.ParseDate(today)
	if err != nil {
		return 0, err
	}
	yesterday := day.AddDate(0, 0, -1).Format(models.DateLayout)
	var best int
	if err := tx.Model(&models.Checkin{}).Select("COALESCE(MAX(streak_count), 0)").
		Where("user_id = ? AND checkin_date >= ?", userID, yesterday).Scan(&best).Error; err != nil {
		return 0, fmt.Errorf("live streak: %w", err)
	}
	return best, nil
}

func checkinMessage(streak, points int, broken bool) string {
	var b strings.Builder
	b.WriteString("Check-in successful! ")
	if broken {
		b.WriteString("Your streak was reset. ")
	} else {
		fmt.Fprintf(&b, "Current streak: %d days! ", streak)
	}
	fmt.Fprintf(&b, "Earned %d points.", points)
	return b.String()
}

// CheckinView is a check-in with the author's display name.
type CheckinView struct {
	models.Checkin
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// List returns the caller's own check-ins, newest day first, optionally narrowed to one challenge.
func (s *CheckinService) List(ctx context.Context, userID, challengeID string, q PageQuery) (*utils.Page, error) {
	q = q.Normalize(20)
	tx := s.db.WithContext(ctx)
	base := tx.Table("checkins AS c").Joins("LEFT JOIN user_profiles p ON p.id = c.user_id").
		Where("c.user_id = ?", userID)
	if challengeID != "" {
		if _, err := s.guard.Verify(ctx, challengeID, userID); err != nil {
			return nil, err
		}
		base = base.Where("c.challenge_id = ?", challengeID)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count check-ins: %w", err)
	}
	var rows []CheckinView
	if err := base.Select("c.*, p.display_name AS display_name, p.avatar_url AS avatar_url").
		Order("c.checkin_date DESC").Order("c.created_at DESC").
		Offset(q.Offset()).Limit(q.Limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	if rows == nil {
		rows = []CheckinView{}
	}
	page := utils.NewPage(rows, total, q.Page, q.Limit)
	return &page, nil
}

func (s *CheckinService) find(tx *gorm.DB, id string) (*models.Checkin, error) {
	var c models.Checkin
	if err := tx.First(&c, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrCheckinNotFound
		}
		return nil, fmt.Errorf("load check-in: %w", err)
	}
	return &c, nil
}

// Get returns one check-in to a member of its challenge.
func (s *CheckinService) Get(ctx context.Context, userID, id string) (*models.Checkin, error) {
	c, err := s.find(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.Verify(ctx, c.ChallengeID, userID); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCaption edits the caption of the caller's own check-in on the day it was made.
func (s *CheckinService) UpdateCaption(ctx context.Context, userID, id string, caption *string) (*models.Checkin, error) {
	if caption == nil {
		return nil, ErrEmptyUpdate
	}
	tx := s.db.WithContext(ctx)
	c, err := s.find(tx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, ErrNotCheckinOwner
	}
	if c.CheckinDate != s.cal.Today() {
		return nil, ErrCheckinEditWindow
	}
	clean := utils.SanitizeText(*caption)
	if len([]rune(clean)) > maxCaptionRunes {
		return nil, ErrCaptionTooLong
	}
	if err := tx.Model(c).Update("caption", clean).Error; err != nil {
		return nil, fmt.Errorf("update check-in: %w", err)
	}
	c.Caption = clean
	return c, nil
}

// Delete removes the caller's own check-in. Streak and points already granted stay, and
// re-creating it on the same day earns nothing more.
func (s *CheckinService) Delete(ctx context.Context, userID, id string) error {
	tx := s.db.WithContext(ctx)
	c, err := s.find(tx, id)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return ErrNotCheckinOwner
	}
	if err := tx.Delete(&models.Checkin{}, "id = ?", c.ID).Error; err != nil {
		return fmt.Errorf("delete check-in: %w", err)
	}
	invalidate(ctx, s.cache, leaderboardPrefix(c.ChallengeID))
	return nil
}

// TodayMember is one active member's state for a habit today.
type TodayMember struct {
	UserID         string  `json:"user_id"`
	DisplayName    string  `json:"display_name"`
	AvatarURL      string  `json:"avatar_url,omitempty"`
	CheckedInToday bool    `json:"checked_in_today"`
	CheckinTime    *string `json:"checkin_time,omitempty"`
	PhotoURL       string  `json:"photo_url,omitempty"`
	IsYou          bool    `json:"is_you"`
}

// TodayHabit groups today's member states under one habit.
type TodayHabit struct {
	HabitID        string        `json:"habit_id"`
	Name           string        `json:"name"`
	Icon           string        `json:"icon,omitempty"`
	Members        []TodayMember `json:"members"`
	CompletedCount int           `json:"completed_count"`
	TotalMembers   int           `json:"total_members"`
	CompletionRate float64       `json:"completion_rate"`
}

// Today reports, per habit in display order, which active members have checked in today.
func (s *CheckinService) Today(ctx context.Context, userID, challengeID string) ([]TodayHabit, error) {
	tx := s.db.WithContext(ctx)
	if _, err := findChallenge(tx, challengeID); err != nil {
		return nil, err
	}
	if _, err := s.guard.Verify(ctx, challengeID, userID); err != nil {
		return nil, err
	}

	var links []models.ChallengeHabit
	if err := tx.Preload("Habit").Where("challenge_id = ?", challengeID).Order("display_order ASC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("load habits: %w", err)
	}
	var members []models.ChallengeMember
	if err := tx.Preload("User").Where("challenge_id = ? AND status = ?", challengeID, models.MemberActive).
		Order("joined_at ASC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	var checkins []models.Checkin
	if err := tx.Where("challenge_id = ? AND checkin_date = ?", challengeID, s.cal.Today()).Find(&checkins).Error; err != nil {
		return nil, fmt.Errorf("load today's check-ins: %w", err)
	}
	byKey := make(map[string]models.Checkin, len(checkins))
	for _, c := range checkins {
		byKey[c.HabitID+"/"+c.UserID] = c
	}

	out := make([]TodayHabit, 0, len(links))
	for _, l := range links {
		h := TodayHabit{HabitID: l.HabitID, Name: l.DisplayName(), Icon: l.DisplayIcon(), Members: []TodayMember{}, TotalMembers: len(members)}
		for _, m := range members {
			tm := TodayMember{UserID: m.UserID, DisplayName: m.User.DisplayName, AvatarURL: m.User.AvatarURL, IsYou: m.UserID == userID}
			if c, ok := byKey[l.HabitID+"/"+m.UserID]; ok {
				at := c.CreatedAt.UTC().Format(time.RFC3339)
				tm.CheckedInToday = true
				tm.CheckinTime = &at
				tm.PhotoURL = c.PhotoURL
				h.CompletedCount++
			}
			h.Members = append(h.Members, tm)
		}
		h.CompletionRate = percent(h.CompletedCount, h.TotalMembers)
		out = append(out, h)
	}
	return out, nil
}
