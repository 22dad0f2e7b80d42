package mq

// ShareEmailJob 邮件分享的发信任务载荷
type ShareEmailJob struct {
	To       string `json:"to"`
	FileName string `json:"file_name"`
	ShareURL string `json:"share_url"`
	Message  string `json:"message,omitempty"`
}

// InviteEmailJob 团队邀请的发信任务载荷
type InviteEmailJob struct {
	To        string `json:"to"`
	InviteURL string `json:"invite_url"`
	Role      string `json:"role"`
}
