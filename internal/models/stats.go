package models

type PrioritySlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

type DayActivity struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
}

type TaskStats struct {
	TotalTasks           int             `json:"total_tasks"`
	CompletedTasks       int             `json:"completed_tasks"`
	CompletionRate       int             `json:"completion_rate"`
	ThisWeekCompleted    int             `json:"this_week_completed"`
	ThisMonthCompleted   int             `json:"this_month_completed"`
	PriorityDistribution []PrioritySlice `json:"priority_distribution"`
	Last7DaysActivity    []DayActivity   `json:"last_7_days_activity"`
}
