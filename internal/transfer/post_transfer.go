package transfer

type PostCreation struct {
	Caption       string
	Platforms     string
	ScheduledTime string
}

type ScheduleUpdate struct {
	PostID        int64    `json:"post_id"`
	Platforms     []string `json:"platforms"`
	ScheduledTime string   `json:"scheduled_time"`
}

type ScheduleRequest struct {
	NumPosts int `json:"num_posts"`
	Days     int `json:"days"`
}

type ScheduleResponse struct {
	ScheduleTimes []string `json:"schedule_times"`
}
