package survey

import "time"

// Survey is one catalog entry. The catalog is static; completions arrive
// exclusively through provider postbacks, so entries carry the provider that
// will deliver them.
type Survey struct {
	ID            string `json:"survey_id"`
	Provider      string `json:"provider"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Points        int64  `json:"points"`
	EstimatedTime int    `json:"estimated_time"`
	Category      string `json:"category"`
	Difficulty    string `json:"difficulty"`
	Status        string `json:"status,omitempty"`
}

// PendingSurvey marks a survey a user has started but not yet completed.
// The composite primary key makes Start idempotent.
type PendingSurvey struct {
	UserID    string    `gorm:"column:user_id;primaryKey" json:"user_id"`
	SurveyID  string    `gorm:"column:survey_id;primaryKey" json:"survey_id"`
	StartedAt time.Time `gorm:"column:started_at;autoCreateTime" json:"started_at"`
}

type StartRequest struct {
	SurveyID string `json:"survey_id" binding:"required"`
}

var catalog = []Survey{
	{ID: "inbrain_001", Provider: "inbrain", Title: "Consumer Shopping Habits", Description: "Share your shopping preferences and habits", Points: 150, EstimatedTime: 10, Category: "Shopping", Difficulty: "Easy"},
	{ID: "inbrain_002", Provider: "inbrain", Title: "Technology Usage Survey", Description: "Tell us about your tech devices and usage", Points: 200, EstimatedTime: 15, Category: "Technology", Difficulty: "Medium"},
	{ID: "inbrain_003", Provider: "inbrain", Title: "Health & Wellness Check", Description: "Share your health and wellness routines", Points: 300, EstimatedTime: 20, Category: "Health", Difficulty: "Medium"},
	{ID: "inbrain_004", Provider: "inbrain", Title: "Entertainment Preferences", Description: "What do you watch, listen to, and play?", Points: 100, EstimatedTime: 8, Category: "Entertainment", Difficulty: "Easy"},
	{ID: "inbrain_005", Provider: "inbrain", Title: "Financial Planning Survey", Description: "Your approach to saving and investing", Points: 400, EstimatedTime: 25, Category: "Finance", Difficulty: "Hard"},
	{ID: "cpx_001", Provider: "cpx_research", Title: "Social Media Usage", Description: "How do you use social media platforms?", Points: 175, EstimatedTime: 12, Category: "Social", Difficulty: "Easy"},
	{ID: "cpx_002", Provider: "cpx_research", Title: "Travel Preferences", Description: "Share your travel experiences and plans", Points: 250, EstimatedTime: 18, Category: "Travel", Difficulty: "Medium"},
	{ID: "cpx_003", Provider: "cpx_research", Title: "Food & Dining Habits", Description: "Your restaurant and cooking preferences", Points: 125, EstimatedTime: 10, Category: "Food", Difficulty: "Easy"},
	{ID: "cpx_004", Provider: "cpx_research", Title: "Automotive Survey", Description: "Your vehicle preferences and habits", Points: 350, EstimatedTime: 22, Category: "Automotive", Difficulty: "Hard"},
	{ID: "cpx_005", Provider: "cpx_research", Title: "Home Improvement", Description: "DIY projects and home renovation plans", Points: 275, EstimatedTime: 16, Category: "Home", Difficulty: "Medium"},
}

func catalogLookup(id string) (Survey, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Survey{}, false
}
