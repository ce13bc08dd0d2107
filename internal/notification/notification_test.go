package notification

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPreferencesAllows(t *testing.T) {
	var nilPrefs *NotificationPreferences
	assert.True(t, nilPrefs.Allows(TypeLevelUp))

	prefs := DefaultPreferences(uuid.New())
	assert.True(t, prefs.Allows(TypeStreakMilestone))

	prefs.EnabledTypes[string(TypeStreakMilestone)] = false
	prefs.EnabledTypes[string(TypeLevelUp)] = true
	assert.False(t, prefs.Allows(TypeStreakMilestone))
	assert.True(t, prefs.Allows(TypeLevelUp))
	assert.True(t, prefs.Allows(TypeAchievementUnlocked))
}
