// Package stats derives the dashboard aggregates from a task list. Compute
// is a pure function of its input; the Aggregator keeps the latest result
// current by listening to a sync engine's change notifications instead of
// relying on any presentation-layer recomputation.
package stats

import (
	"fmt"
	"math"
	"time"

	"todohub/internal/models"
)

var priorityColors = map[models.Priority]string{
	models.PriorityHigh:   "#ef4444",
	models.PriorityMedium: "#f59e0b",
	models.PriorityLow:    "#3b82f6",
}

// Compute aggregates the task list at the given instant. Week and month
// boundaries are local midnights; the week starts on Sunday.
func Compute(tasks []models.Task, now time.Time) models.TaskStats {
	total := len(tasks)
	completed := 0
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}

	rate := 0
	if total > 0 {
		rate = int(math.Round(float64(completed) / float64(total) * 100))
	}

	startOfWeek := startOfDay(now.AddDate(0, 0, -int(now.Weekday())))
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	thisWeek, thisMonth := 0, 0
	for _, t := range tasks {
		if !t.Completed {
			continue
		}
		if !t.UpdatedAt.Before(startOfWeek) {
			thisWeek++
		}
		if !t.UpdatedAt.Before(startOfMonth) {
			thisMonth++
		}
	}

	counts := map[models.Priority]int{}
	for _, t := range tasks {
		counts[t.Priority]++
	}
	distribution := []models.PrioritySlice{
		{Name: string(models.PriorityHigh), Value: counts[models.PriorityHigh], Color: priorityColors[models.PriorityHigh]},
		{Name: string(models.PriorityMedium), Value: counts[models.PriorityMedium], Color: priorityColors[models.PriorityMedium]},
		{Name: string(models.PriorityLow), Value: counts[models.PriorityLow], Color: priorityColors[models.PriorityLow]},
	}

	// Exactly 7 buckets, oldest to newest, one calendar day each; a task
	// counts in the single day containing its updated_at.
	activity := make([]models.DayActivity, 0, 7)
	for i := 6; i >= 0; i-- {
		day := startOfDay(now.AddDate(0, 0, -i))
		next := day.AddDate(0, 0, 1)

		count := 0
		for _, t := range tasks {
			if t.Completed && !t.UpdatedAt.Before(day) && t.UpdatedAt.Before(next) {
				count++
			}
		}
		activity = append(activity, models.DayActivity{
			Date:      fmt.Sprintf("%d/%d", int(day.Month()), day.Day()),
			Completed: count,
		})
	}

	return models.TaskStats{
		TotalTasks:           total,
		CompletedTasks:       completed,
		CompletionRate:       rate,
		ThisWeekCompleted:    thisWeek,
		ThisMonthCompleted:   thisMonth,
		PriorityDistribution: distribution,
		Last7DaysActivity:    activity,
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
