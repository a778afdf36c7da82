package chat

import "time"

// Role identifies who authored a message.
type Role int

const (
	RoleUser Role = iota
	RoleBot
)

func (r Role) String() string {
	if r == RoleUser {
		return "user"
	}
	return "bot"
}

// Message is one bubble in the conversation.
type Message struct {
	Content   string
	Role      Role
	Timestamp time.Time
	Pending   bool // true only for a bot reply that has not received its first chunk
}

const (
	// Greeting seeds every new conversation.
	Greeting = "안녕하세요! 저는 당신의 이력서를 소개해드릴 챗봇입니다. 어떤 것이 궁금하신가요?"

	// ErrorText replaces a reply whose exchange failed.
	ErrorText = "죄송합니다. 서버와 연결할 수 없습니다."
)

// QuickReply is a canned question offered as a one-key shortcut.
type QuickReply struct {
	Label string
	Query string
}

// QuickReplies is the fixed shortcut list, in display order.
var QuickReplies = []QuickReply{
	{Label: "기술 스택", Query: "보유하고 계신 기술 스택을 알려주세요."},
	{Label: "프로젝트 경험", Query: "주요 프로젝트 경험에 대해 설명해주세요."},
	{Label: "학력", Query: "학력 사항을 알려주세요."},
	{Label: "경력", Query: "경력 사항을 알려주세요."},
	{Label: "자격증", Query: "보유하신 자격증을 알려주세요."},
}

// LookupQuickReply returns the 1-based n-th quick reply.
func LookupQuickReply(n int) (QuickReply, bool) {
	if n < 1 || n > len(QuickReplies) {
		return QuickReply{}, false
	}
	return QuickReplies[n-1], true
}
