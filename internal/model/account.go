package model

type Role string

const (
	RoleTeam  Role = "team"
	RoleAdmin Role = "admin"
)

// Team 参赛队伍账号，可参加多个测验，每个测验最多一次
type Team struct {
	BaseModel
	TeamName       string `gorm:"size:100;not null" json:"teamName"`
	TeamLeaderName string `gorm:"size:100;not null" json:"teamLeaderName"`
	Email          string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	StudentID      string `gorm:"size:64;uniqueIndex;not null" json:"studentId"`
	Password       string `gorm:"size:100;not null" json:"-"`
}

func (Team) TableName() string {
	return "teams"
}

type Admin struct {
	BaseModel
	Name     string `gorm:"size:100" json:"name"`
	Email    string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string `gorm:"size:100;not null" json:"-"`
}

func (Admin) TableName() string {
	return "admins"
}
