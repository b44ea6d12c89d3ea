package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KZEN17/token-ready-sub000/internal/models"
)

func TestTallyEmpty(t *testing.T) {
	summary := Tally(nil)
	assert.Equal(t, ScoreSummary{}, summary)
}

func TestTallyMixedActivity(t *testing.T) {
	// 3个用户backing + 2个用户review + 4个用户share，全部互不相同
	var records []models.ActivityRecord
	for i := 0; i < 3; i++ {
		records = append(records, models.ActivityRecord{
			UserID:       fmt.Sprintf("backer-%d", i),
			ActivityType: models.ActivityTypeBacking,
		})
	}
	for i := 0; i < 2; i++ {
		records = append(records, models.ActivityRecord{
			UserID:       fmt.Sprintf("reviewer-%d", i),
			ActivityType: models.ActivityTypeReview,
		})
	}
	for i := 0; i < 4; i++ {
		records = append(records, models.ActivityRecord{
			UserID:       fmt.Sprintf("sharer-%d", i),
			ActivityType: models.ActivityTypeShare,
		})
	}

	summary := Tally(records)
	assert.Equal(t, int64(9), summary.UniqueBackers)
	assert.Equal(t, int64(2), summary.Reviews)
	assert.Equal(t, int64(4), summary.Shares)
	// round(9*1 + 4*0.5 + 2*2) = 15
	assert.Equal(t, int64(15), summary.SignalScore)
}

func TestTallyDistinctUsersAcrossTypes(t *testing.T) {
	// 同一用户的多条记录只计一个backer，但每条review/share都计数
	records := []models.ActivityRecord{
		{UserID: "u1", ActivityType: models.ActivityTypeBacking},
		{UserID: "u1", ActivityType: models.ActivityTypeReview},
		{UserID: "u1", ActivityType: models.ActivityTypeShare},
		{UserID: "u1", ActivityType: models.ActivityTypeShare},
	}

	summary := Tally(records)
	assert.Equal(t, int64(1), summary.UniqueBackers)
	assert.Equal(t, int64(1), summary.Reviews)
	assert.Equal(t, int64(2), summary.Shares)
	// round(1 + 2*0.5 + 1*2) = 4
	assert.Equal(t, int64(4), summary.SignalScore)
}

func TestTallyRounding(t *testing.T) {
	// 1个share贡献0.5分，四舍五入进位
	records := []models.ActivityRecord{
		{UserID: "u1", ActivityType: models.ActivityTypeShare},
	}
	summary := Tally(records)
	// round(1 + 0.5) = 2
	assert.Equal(t, int64(2), summary.SignalScore)
}
