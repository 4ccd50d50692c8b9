package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/darezone/api/models"
	"github.com/darezone/api/utils"
)

// MaxHitchTargets bounds the targets of one hitch request.
const MaxHitchTargets = 10

// HitchInput asks to remind targets about one habit.
type HitchInput struct {
	ChallengeID   string
	HabitID       string
	TargetUserIDs []string
}

// HitchResult summarises a hitch request.
type HitchResult struct {
	HitchesSent      int      `json:"hitches_sent"`
	RemainingHitches int      `json:"remaining_hitches"`
	Recipients       []string `json:"recipients"`
	Message          string   `json:"message"`
}

// HitchService spends a member's hitch allowance on reminders to other members.
type HitchService struct {
	db       *gorm.DB
	notifier Notifier
	cal      *Calendar
}

// NewHitchService creates the engine.
func NewHitchService(db *gorm.DB, notifier Notifier, cal *Calendar) *HitchService {
	return &HitchService{db: db, notifier: notifier, cal: cal}
}

// Send records one reminder per eligible target and consumes one hitch for the whole request.
// A target already reminded today by the sender for the habit is skipped.
func (s *HitchService) Send(ctx context.Context, senderID string, in HitchInput) (*HitchResult, error) {
	today := s.cal.Today()

	var (
		ch        *models.Challenge
		link      models.ChallengeHabit
		sent      []string
		remaining int
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sender, err := findMember(tx.Clauses(clause.Locking{Strength: "UPDATE"}), in.ChallengeID, senderID)
		if err != nil {
			return err
		}
		if !sender.IsActive() {
			return ErrNotActiveMember
		}
		if sender.HitchCount <= 0 {
			return ErrNoHitchesRemaining
		}
		if len(in.TargetUserIDs) == 0 || len(in.TargetUserIDs) > MaxHitchTargets {
			return ErrInvalidHitchTargets
		}
		if err := tx.Preload("Habit").Where("challenge_id = ? AND habit_id = ?", in.ChallengeID, in.HabitID).First(&link).Error; err != nil {
			if isNotFound(err) {
				return ErrHabitNotInChallenge
			}
			return err
		}
		if ch, err = findChallenge(tx, in.ChallengeID); err != nil {
			return err
		}

		candidates := make([]string, 0, len(in.TargetUserIDs))
		for _, id := range utils.UniqueStrings(in.TargetUserIDs) {
			if id != senderID && id != "" {
				candidates = append(candidates, id)
			}
		}
		var eligible []string
		if len(candidates) > 0 {
			if err := tx.Model(&models.ChallengeMember{}).
				Where("challenge_id = ? AND status = ? AND user_id IN ?", in.ChallengeID, models.MemberActive, candidates).
				Pluck("user_id", &eligible).Error; err != nil {
				return err
			}
		}
		active := make(map[string]bool, len(eligible))
		for _, id := range eligible {
			active[id] = true
		}

		for _, target := range candidates {
			if !active[target] {
				continue
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.HitchLog{
				ChallengeID: in.ChallengeID,
				HabitID:     in.HabitID,
				SenderID:    senderID,
				TargetID:    target,
				HitchDate:   today,
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			sent = append(sent, target)
		}
		if len(sent) == 0 {
			return ErrNoValidTargets
		}

		res := tx.Model(&models.ChallengeMember{}).
			Where("id = ? AND hitch_count > 0", sender.ID).
			UpdateColumn("hitch_count", gorm.Expr("hitch_count - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoHitchesRemaining
		}
		remaining = sender.HitchCount - 1
		return nil
	})
	if err != nil {
		if KindOf(err) != KindInternal {
			return nil, err
		}
		return nil, fmt.Errorf("send hitch: %w", err)
	}

	utils.HitchesSentTotal.Add(float64(len(sent)))
	senderName := "A friend"
	var p models.UserProfile
	if err := s.db.WithContext(ctx).Select("id", "display_name").First(&p, "id = ?", senderID).Error; err == nil && p.DisplayName != "" {
		senderName = p.DisplayName
	}
	for _, target := range sent {
		s.notifier.Notify(ctx, NotificationInput{
			UserID: target,
			Type:   models.NotifyHitchReminder,
			Title:  "Friendly reminder",
			Body:   fmt.Sprintf("%s reminded you to %s in %s", senderName, link.DisplayName(), ch.Name),
			Data: map[string]interface{}{
				"challenge_id": in.ChallengeID,
				"habit_id":     in.HabitID,
				"sender_id":    senderID,
			},
		})
	}

	return &HitchResult{
		HitchesSent:      len(sent),
		RemainingHitches: remaining,
		Recipients:       sent,
		Message:          fmt.Sprintf("Sent %d reminder(s). %d hitch(es) remaining.", len(sent), remaining),
	}, nil
}
