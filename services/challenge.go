package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/darezone/api/models"
	"github.com/darezone/api/utils"
)

const (
	maxChallengeDays   = 365
	maxInviteAttempts  = 10
	defaultMaxMembers  = 10
	maxMembersCeiling  = 50
	maxChallengeName   = 200
	maxChallengeDetail = 2000
)

// ChallengeConfig carries the tunable business limits.
type ChallengeConfig struct {
	MaxHabits         int
	DefaultHitchCount int
}

// ChallengeService owns challenge lifecycle and membership changes.
type ChallengeService struct {
	db       *gorm.DB
	guard    *MembershipGuard
	notifier Notifier
	cal      *Calendar
	cache    Cache
	cfg      ChallengeConfig
	newCode  func() (string, error)
}

// NewChallengeService creates the service. cache may be nil.
func NewChallengeService(db *gorm.DB, guard *MembershipGuard, notifier Notifier, cal *Calendar, cache Cache, cfg ChallengeConfig) *ChallengeService {
	if cfg.MaxHabits <= 0 {
		cfg.MaxHabits = 4
	}
	if cfg.DefaultHitchCount <= 0 {
		cfg.DefaultHitchCount = 2
	}
	return &ChallengeService{
		db:       db,
		guard:    guard,
		notifier: notifier,
		cal:      cal,
		cache:    cache,
		cfg:      cfg,
		newCode:  utils.GenerateInviteCode,
	}
}

// CreateChallengeInput is the validated payload for Create.
type CreateChallengeInput struct {
	Name            string
	Description     string
	Type            string
	StartDate       string
	EndDate         string
	HabitIDs        []string
	CheckinType     string
	RequireEvidence *bool
	MaxMembers      int
	IsPublic        bool
}

// UpdateChallengeInput holds optional fields; nil means unchanged.
type UpdateChallengeInput struct {
	Name        *string
	Description *string
	Status      *string
	MaxMembers  *int
	IsPublic    *bool
}

func (in UpdateChallengeInput) empty() bool {
	return in.Name == nil && in.Description == nil && in.Status == nil && in.MaxMembers == nil && in.IsPublic == nil
}

// HabitView is a challenge habit with overrides applied.
type HabitView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Icon          string `json:"icon,omitempty"`
	Description   string `json:"description,omitempty"`
	DisplayOrder  int    `json:"display_order"`
	TotalCheckins int    `json:"total_checkins"`
}

// MemberView is a membership joined with the member's public profile.
type MemberView struct {
	UserID        string     `json:"user_id"`
	DisplayName   string     `json:"display_name"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	Role          string     `json:"role"`
	Status        string     `json:"status"`
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	TotalCheckins int        `json:"total_checkins"`
	PointsEarned  int        `json:"points_earned"`
	HitchCount    int        `json:"hitch_count"`
	JoinedAt      time.Time  `json:"joined_at"`
	LastCheckinAt *time.Time `json:"last_checkin_at,omitempty"`
}

// ChallengeView is a challenge as seen by one member.
type ChallengeView struct {
	models.Challenge
	MyRole   string       `json:"my_role,omitempty"`
	MyStatus string       `json:"my_status,omitempty"`
	MyStats  *MemberView  `json:"my_stats,omitempty"`
	Habits   []HabitView  `json:"habits,omitempty"`
	Members  []MemberView `json:"members,omitempty"`
}

// Create validates the request and creates the challenge, its habits and the creator membership atomically.
func (s *ChallengeService) Create(ctx context.Context, userID string, in CreateChallengeInput) (*ChallengeView, error) {
	ch, habitIDs, err := s.validateCreate(in)
	if err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx)

	var found int64
	if err := tx.Model(&models.Habit{}).Where("id IN ?", habitIDs).Count(&found).Error; err != nil {
		return nil, fmt.Errorf("check habits: %w", err)
	}
	if int(found) != len(habitIDs) {
		return nil, ErrUnknownHabits
	}

	code, err := s.allocateInviteCode(tx)
	if err != nil {
		return nil, err
	}
	ch.InviteCode = code
	ch.CreatedBy = userID
	ch.Status = models.ChallengePending
	ch.MemberCount = 1

	err = tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ch).Error; err != nil {
			return err
		}
		links := make([]models.ChallengeHabit, 0, len(habitIDs))
		for i, hid := range habitIDs {
			links = append(links, models.ChallengeHabit{ChallengeID: ch.ID, HabitID: hid, DisplayOrder: i})
		}
		if err := tx.Create(&links).Error; err != nil {
			return err
		}
		return tx.Create(&models.ChallengeMember{
			ChallengeID: ch.ID,
			UserID:      userID,
			Role:        models.RoleCreator,
			Status:      models.MemberActive,
			HitchCount:  s.cfg.DefaultHitchCount,
			JoinedAt:    s.cal.Now(),
		}).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrInviteCodeExhausted
		}
		return nil, fmt.Errorf("create challenge: %w", err)
	}
	logger().Sugar().Infof("challenge %s created by %s with %d habits", ch.ID, userID, len(habitIDs))
	return s.Get(ctx, userID, ch.ID)
}

func (s *ChallengeService) validateCreate(in CreateChallengeInput) (*models.Challenge, []string, error) {
	name := utils.SanitizeText(in.Name)
	if name == "" || len([]rune(name)) > maxChallengeName {
		return nil, nil, ErrInvalidChallengeName
	}
	desc := utils.SanitizeText(in.Description)
	if len([]rune(desc)) > maxChallengeDetail {
		return nil, nil, ErrDescriptionTooLong
	}

	typ := in.Type
	if typ == "" {
		typ = models.ChallengeGroup
	}
	if typ != models.ChallengeGroup && typ != models.ChallengeIndividual {
		return nil, nil, ErrInvalidChallengeType
	}
	checkinType := in.CheckinType
	if checkinType == "" {
		checkinType = models.CheckinTypeAny
	}
	switch checkinType {
	case models.CheckinTypePhoto, models.CheckinTypeVideo, models.CheckinTypeCaption, models.CheckinTypeAny:
	default:
		return nil, nil, ErrInvalidCheckinType
	}

	days, err := models.DaysBetween(in.StartDate, in.EndDate)
	if err != nil {
		return nil, nil, ErrInvalidDate
	}
	if days <= 0 {
		return nil, nil, ErrInvalidDateRange
	}
	if days > maxChallengeDays {
		return nil, nil, ErrChallengeTooLong
	}

	if len(in.HabitIDs) < 1 || len(in.HabitIDs) > s.cfg.MaxHabits {
		return nil, nil, ErrInvalidHabitCount
	}
	if utils.HasDuplicates(in.HabitIDs) {
		return nil, nil, ErrDuplicateHabits
	}

	maxMembers := in.MaxMembers
	if maxMembers == 0 {
		maxMembers = defaultMaxMembers
	}
	if maxMembers < 1 || maxMembers > maxMembersCeiling {
		return nil, nil, ErrInvalidMaxMembers
	}
	requireEvidence := true
	if in.RequireEvidence != nil {
		requireEvidence = *in.RequireEvidence
	}

	return &models.Challenge{
		Name:            name,
		Description:     desc,
		Type:            typ,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		CheckinType:     checkinType,
		RequireEvidence: requireEvidence,
		IsPublic:        in.IsPublic,
		MaxMembers:      maxMembers,
	}, in.HabitIDs, nil
}

// allocateInviteCode draws codes until one is unused, giving up after maxInviteAttempts.
func (s *ChallengeService) allocateInviteCode(tx *gorm.DB) (string, error) {
	for i := 0; i < maxInviteAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		var n int64
		if err := tx.Model(&models.Challenge{}).Where("invite_code = ?", code).Count(&n).Error; err != nil {
			return "", fmt.Errorf("check invite code: %w", err)
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", ErrInviteCodeExhausted
}

// List returns the caller's challenges, newest first. status filters on the caller's membership status.
func (s *ChallengeService) List(ctx context.Context, userID, status string, q PageQuery) (*utils.Page, error) {
	q = q.Normalize(20)
	base := s.db.WithContext(ctx).Table("challenge_members AS m").
		Joins("JOIN challenges c ON c.id = m.challenge_id").
		Where("m.user_id = ?", userID)
	if status != "" {
		base = base.Where("m.status = ?", status)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count challenges: %w", err)
	}

	var rows []struct {
		models.Challenge
		MyRole   string
		MyStatus string
	}
	if err := base.Select("c.*, m.role AS my_role, m.status AS my_status").
		Order("c.created_at DESC").Offset(q.Offset()).Limit(q.Limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}

	items := make([]ChallengeView, 0, len(rows))
	for _, r := range rows {
		v := ChallengeView{Challenge: r.Challenge, MyRole: r.MyRole, MyStatus: r.MyStatus}
		if r.CreatedBy != userID {
			v.InviteCode = ""
		}
		items = append(items, v)
	}
	page := utils.NewPage(items, total, q.Page, q.Limit)
	return &page, nil
}

// Get returns the challenge with habits and members. Non-members get ErrNotMember.
func (s *ChallengeService) Get(ctx context.Context, userID, challengeID string) (*ChallengeView, error) {
	tx := s.db.WithContext(ctx)
	ch, err := findChallenge(tx, challengeID)
	if err != nil {
		return nil, err
	}
	me, err := s.guard.Verify(ctx, challengeID, userID)
	if err != nil {
		return nil, err
	}
	habits, err := s.habitViews(tx, challengeID)
	if err != nil {
		return nil, err
	}
	members, err := s.memberViews(tx, challengeID, "")
	if err != nil {
		return nil, err
	}

	v := &ChallengeView{Challenge: *ch, MyRole: me.Role, MyStatus: me.Status, Habits: habits, Members: members}
	for i := range members {
		if members[i].UserID == userID {
			v.MyStats = &members[i]
		}
	}
	return v, nil
}

// Members lists a challenge's members ordered by join time.
func (s *ChallengeService) Members(ctx context.Context, userID, challengeID string) ([]MemberView, error) {
	tx := s.db.WithContext(ctx)
	if _, err := findChallenge(tx, challengeID); err != nil {
		return nil, err
	}
	if _, err := s.guard.Verify(ctx, challengeID, userID); err != nil {
		return nil, err
	}
	return s.memberViews(tx, challengeID, "")
}

func (s *ChallengeService) habitViews(tx *gorm.DB, challengeID string) ([]HabitView, error) {
	var links []models.ChallengeHabit
	if err := tx.Preload("Habit").Where("challenge_id = ?", challengeID).Order("display_order ASC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("load challenge habits: %w", err)
	}
	out := make([]HabitView, 0, len(links))
	for _, l := range links {
		desc := l.CustomDescription
		if desc == "" {
			desc = l.Habit.Description
		}
		out = append(out, HabitView{
			ID:            l.HabitID,
			Name:          l.DisplayName(),
			Icon:          l.DisplayIcon(),
			Description:   desc,
			DisplayOrder:  l.DisplayOrder,
			TotalCheckins: l.TotalCheckins,
		})
	}
	return out, nil
}

func (s *ChallengeService) memberViews(tx *gorm.DB, challengeID, status string) ([]MemberView, error) {
	q := tx.Preload("User").Where("challenge_id = ?", challengeID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var members []models.ChallengeMember
	if err := q.Order("joined_at ASC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	out := make([]MemberView, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberView(m))
	}
	return out, nil
}

func toMemberView(m models.ChallengeMember) MemberView {
	return MemberView{
		UserID:        m.UserID,
		DisplayName:   m.User.DisplayName,
		AvatarURL:     m.User.AvatarURL,
		Role:          m.Role,
		Status:        m.Status,
		CurrentStreak: m.CurrentStreak,
		LongestStreak: m.LongestStreak,
		TotalCheckins: m.TotalCheckins,
		PointsEarned:  m.PointsEarned,
		HitchCount:    m.HitchCount,
		JoinedAt:      m.JoinedAt,
		LastCheckinAt: m.LastCheckinAt,
	}
}

// Join adds the caller to the challenge behind inviteCode, or reactivates a previous membership.
func (s *ChallengeService) Join(ctx context.Context, userID, inviteCode string) (*ChallengeView, error) {
	code := utils.NormalizeInviteCode(inviteCode)
	if !utils.IsInviteCodeShape(code) {
		return nil, ErrInvalidInviteCode
	}

	var ch models.Challenge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("invite_code = ?", code).First(&ch).Error; err != nil {
			if isNotFound(err) {
				return ErrInviteCodeNotFound
			}
			return err
		}

		existing, err := findMember(tx, ch.ID, userID)
		switch {
		case err == nil:
			switch existing.Status {
			case models.MemberActive:
				return ErrAlreadyMember
			case models.MemberKicked:
				return ErrKickedFromChallenge
			}
			if ch.MemberCount >= ch.MaxMembers {
				return ErrChallengeFull
			}
			if !models.CanTransitionMember(existing.Status, models.MemberActive) {
				return ErrInvalidTransition
			}
			if err := tx.Model(&models.ChallengeMember{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
				"status":      models.MemberActive,
				"hitch_count": s.cfg.DefaultHitchCount,
				"left_at":     nil,
			}).Error; err != nil {
				return err
			}
		case errors.Is(err, ErrNotMember):
			if ch.MemberCount >= ch.MaxMembers {
				return ErrChallengeFull
			}
			if err := tx.Create(&models.ChallengeMember{
				ChallengeID: ch.ID,
				UserID:      userID,
				Role:        models.RoleMember,
				Status:      models.MemberActive,
				HitchCount:  s.cfg.DefaultHitchCount,
				JoinedAt:    s.cal.Now(),
			}).Error; err != nil {
				if isDuplicateKey(err) {
					return ErrAlreadyMember
				}
				return err
			}
		default:
			return err
		}
		return tx.Model(&models.Challenge{}).Where("id = ?", ch.ID).
			UpdateColumn("member_count", gorm.Expr("member_count + 1")).Error
	})
	if err != nil {
		if KindOf(err) != KindInternal {
			return nil, err
		}
		return nil, fmt.Errorf("join challenge: %w", err)
	}

	invalidate(ctx, s.cache, leaderboardPrefix(ch.ID))
	if ch.CreatedBy != userID {
		name := s.displayName(ctx, userID)
		s.notifier.Notify(ctx, NotificationInput{
			UserID: ch.CreatedBy,
			Type:   models.NotifyMemberJoined,
			Title:  "New member joined",
			Body:   fmt.Sprintf("%s joined %s", name, ch.Name),
			Data:   map[string]interface{}{"challenge_id": ch.ID, "user_id": userID},
		})
	}
	return s.Get(ctx, userID, ch.ID)
}

// Leave marks the caller's membership as left. The creator cannot leave.
func (s *ChallengeService) Leave(ctx context.Context, userID, challengeID string) error {
	var ch *models.Challenge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ch, err = findChallenge(tx.Clauses(clause.Locking{Strength: "UPDATE"}), challengeID)
		if err != nil {
			return err
		}
		m, err := findMember(tx, challengeID, userID)
		if err != nil {
			if errors.Is(err, ErrNotMember) {
				return ErrMembershipNotFound
			}
			return err
		}
		if m.Role == models.RoleCreator {
			return ErrCreatorCannotLeave
		}
		if m.Status == models.MemberLeft || m.Status == models.MemberKicked {
			return ErrAlreadyLeft
		}
		if !models.CanTransitionMember(m.Status, models.MemberLeft) {
			return ErrInvalidTransition
		}
		now := s.cal.Now()
		if err := tx.Model(&models.ChallengeMember{}).Where("id = ?", m.ID).
			Updates(map[string]interface{}{"status": models.MemberLeft, "left_at": now}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Challenge{}).Where("id = ?", challengeID).
			UpdateColumn("member_count", gorm.Expr("CASE WHEN member_count > 0 THEN member_count - 1 ELSE 0 END")).Error
	})
	if err != nil {
		if KindOf(err) != KindInternal {
			return err
		}
		return fmt.Errorf("leave challenge: %w", err)
	}

	invalidate(ctx, s.cache, leaderboardPrefix(challengeID))
	s.notifier.Notify(ctx, NotificationInput{
		UserID: ch.CreatedBy,
		Type:   models.NotifyMemberLeft,
		Title:  "Member left",
		Body:   fmt.Sprintf("%s left %s", s.displayName(ctx, userID), ch.Name),
		Data:   map[string]interface{}{"challenge_id": ch.ID, "user_id": userID},
	})
	return nil
}

// Update changes challenge settings. Only the creator or an admin may call it.
func (s *ChallengeService) Update(ctx context.Context, userID, challengeID string, in UpdateChallengeInput) (*ChallengeView, error) {
	if in.empty() {
		return nil, ErrEmptyUpdate
	}
	tx := s.db.WithContext(ctx)
	ch, err := findChallenge(tx, challengeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireRole(ctx, challengeID, userID, models.RoleCreator, models.RoleAdmin); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := utils.SanitizeText(*in.Name)
		if name == "" || len([]rune(name)) > maxChallengeName {
			return nil, ErrInvalidChallengeName
		}
		updates["name"] = name
	}
	if in.Description != nil {
		desc := utils.SanitizeText(*in.Description)
		if len([]rune(desc)) > maxChallengeDetail {
			return nil, ErrDescriptionTooLong
		}
		updates["description"] = desc
	}
	if in.Status != nil {
		if !models.IsChallengeStatus(*in.Status) || !models.CanTransitionChallenge(ch.Status, *in.Status) {
			return nil, ErrInvalidTransition
		}
		updates["status"] = *in.Status
	}
	if in.MaxMembers != nil {
		if *in.MaxMembers < 1 || *in.MaxMembers > maxMembersCeiling {
			return nil, ErrInvalidMaxMembers
		}
		if *in.MaxMembers < ch.MemberCount {
			return nil, ErrMaxMembersTooLow
		}
		updates["max_members"] = *in.MaxMembers
	}
	if in.IsPublic != nil {
		updates["is_public"] = *in.IsPublic
	}

	if err := tx.Model(&models.Challenge{}).Where("id = ?", challengeID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update challenge: %w", err)
	}

	if in.Status != nil && *in.Status != ch.Status {
		s.announceStatus(ctx, userID, ch, *in.Status)
	}
	return s.Get(ctx, userID, challengeID)
}

func (s *ChallengeService) announceStatus(ctx context.Context, actorID string, ch *models.Challenge, status string) {
	var typ models.NotificationType
	var title, body string
	switch status {
	case models.ChallengeActive:
		typ, title, body = models.NotifyChallengeStarted, "Challenge started", fmt.Sprintf("%s has started. Time to check in!", ch.Name)
	case models.ChallengeCompleted:
		typ, title, body = models.NotifyChallengeCompleted, "Challenge completed", fmt.Sprintf("%s is complete. Nice work!", ch.Name)
	default:
		return
	}
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.ChallengeMember{}).
		Where("challenge_id = ? AND status = ? AND user_id <> ?", ch.ID, models.MemberActive, actorID).
		Pluck("user_id", &ids).Error; err != nil {
		logger().Sugar().Warnf("load members for status notification: %v", err)
		return
	}
	for _, id := range ids {
		s.notifier.Notify(ctx, NotificationInput{
			UserID: id,
			Type:   typ,
			Title:  title,
			Body:   body,
			Data:   map[string]interface{}{"challenge_id": ch.ID},
		})
	}
}

// MemberProgress is one member's habit completion for a day.
type MemberProgress struct {
	UserID         string          `json:"user_id"`
	DisplayName    string          `json:"display_name"`
	AvatarURL      string          `json:"avatar_url,omitempty"`
	Habits         map[string]bool `json:"habits"`
	CompletedCount int             `json:"completed_count"`
	CompletionPct  float64         `json:"completion_pct"`
	IsCurrentUser  bool            `json:"is_current_user"`
	CurrentStreak  int             `json:"current_streak"`
}

// Progress is the per-day completion board of a challenge.
type Progress struct {
	ChallengeID       string           `json:"challenge_id"`
	Date              string           `json:"date"`
	TotalHabits       int              `json:"total_habits"`
	Habits            []HabitView      `json:"habits"`
	Members           []MemberProgress `json:"members"`
	OverallCompletion float64          `json:"overall_completion"`
}

// Progress reports which habits each active member completed on date (today when empty).
func (s *ChallengeService) Progress(ctx context.Context, userID, challengeID, date string) (*Progress, error) {
	if date == "" {
		date = s.cal.Today()
	} else if _, err := models.ParseDate(date); err != nil {
		return nil, ErrInvalidDate
	}
	tx := s.db.WithContext(ctx)
	if _, err := findChallenge(tx, challengeID); err != nil {
		return nil, err
	}
	if _, err := s.guard.Verify(ctx, challengeID, userID); err != nil {
		return nil, err
	}
	habits, err := s.habitViews(tx, challengeID)
	if err != nil {
		return nil, err
	}
	members, err := s.memberViews(tx, challengeID, models.MemberActive)
	if err != nil {
		return nil, err
	}
	var checkins []models.Checkin
	if err := tx.Where("challenge_id = ? AND checkin_date = ? AND status IN ?", challengeID, date,
		[]string{models.CheckinCompleted, models.CheckinVerified}).Find(&checkins).Error; err != nil {
		return nil, fmt.Errorf("load day check-ins: %w", err)
	}
	done := map[string]map[string]bool{}
	for _, c := range checkins {
		if done[c.UserID] == nil {
			done[c.UserID] = map[string]bool{}
		}
		done[c.UserID][c.HabitID] = true
	}

	out := &Progress{ChallengeID: challengeID, Date: date, TotalHabits: len(habits), Habits: habits, Members: []MemberProgress{}}
	completed, possible := 0, 0
	for _, m := range members {
		mp := MemberProgress{
			UserID:        m.UserID,
			DisplayName:   m.DisplayName,
			AvatarURL:     m.AvatarURL,
			Habits:        map[string]bool{},
			IsCurrentUser: m.UserID == userID,
			CurrentStreak: m.CurrentStreak,
		}
		for _, h := range habits {
			ok := done[m.UserID][h.ID]
			mp.Habits[h.ID] = ok
			if ok {
				mp.CompletedCount++
			}
		}
		mp.CompletionPct = percent(mp.CompletedCount, len(habits))
		completed += mp.CompletedCount
		possible += len(habits)
		out.Members = append(out.Members, mp)
	}
	out.OverallCompletion = percent(completed, possible)
	return out, nil
}

func (s *ChallengeService) displayName(ctx context.Context, userID string) string {
	var p models.UserProfile
	if err := s.db.WithContext(ctx).Select("id", "display_name").First(&p, "id = ?", userID).Error; err != nil || p.DisplayName == "" {
		return "Someone"
	}
	return p.DisplayName
}

// percent returns part/whole*100 rounded to two decimals; zero when whole is zero.
func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
