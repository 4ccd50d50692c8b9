package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&UserProfile{},
		&Habit{},
		&Challenge{},
		&ChallengeHabit{},
		&ChallengeMember{},
		&Checkin{},
		&PointsLedgerEntry{},
		&HitchLog{},
		&Notification{},
		&Friendship{},
		&MediaObject{},
	}
}
