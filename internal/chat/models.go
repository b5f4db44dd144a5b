package chat

import "time"

type Session struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"index;not null" json:"user_id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Active    bool      `gorm:"index;not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Session) TableName() string { return "chat_sessions" }

// DefaultSessionName is given to sessions created implicitly by the
// orchestrator; the title worker replaces it with the first user turn.
const DefaultSessionName = "New chat"

type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID uint64    `gorm:"not null;index:idx_chat_msg_session" json:"session_id"`
	Session   *Session  `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint64    `gorm:"index;not null" json:"user_id"`
	Model     string    `gorm:"type:varchar(64);not null" json:"model"`
	Role      string    `gorm:"type:varchar(16);index;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Message) TableName() string { return "chat_messages" }

type ModelConfig struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string    `gorm:"type:varchar(64);not null" json:"name"`
	Model           string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"model"`
	Desc            string    `gorm:"type:varchar(255)" json:"desc"`
	SupportsHistory bool      `json:"supports_history"`
	Image           string    `gorm:"type:varchar(255)" json:"image"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ModelConfig) TableName() string { return "chat_models" }
