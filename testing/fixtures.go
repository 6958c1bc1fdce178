package testing

import (
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/google/uuid"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates a user on the given tier with a unique email
func (tf *TestFixtures) CreateTestUser(tier string) (*models.User, error) {
	name := "John Doe"
	user := &models.User{
		Email: fmt.Sprintf("john.doe.%s@example.com", uuid.NewString()),
		Name:  &name,
		Tier:  tier,
	}
	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTestTeam creates a team and registers its owner as an OWNER member
func (tf *TestFixtures) CreateTestTeam(owner *models.User) (*models.Team, error) {
	team := &models.Team{Name: "Growth Team", OwnerID: owner.ID}
	if err := tf.DB.DB.Create(team).Error; err != nil {
		return nil, fmt.Errorf("failed to create test team: %w", err)
	}
	if _, err := tf.AddTestTeamMember(team, owner, models.TeamRoleOwner); err != nil {
		return nil, err
	}
	return team, nil
}

// AddTestTeamMember adds user to team with role
func (tf *TestFixtures) AddTestTeamMember(team *models.Team, user *models.User, role string) (*models.TeamMember, error) {
	member := &models.TeamMember{TeamID: team.ID, UserID: user.ID, Role: role}
	if err := tf.DB.DB.Create(member).Error; err != nil {
		return nil, fmt.Errorf("failed to create test team member: %w", err)
	}
	return member, nil
}

// CreateTestLink creates a link owned by owner (nil for anonymous)
func (tf *TestFixtures) CreateTestLink(code string, owner *models.User, expiresAt *time.Time) (*models.Link, error) {
	link := &models.Link{
		ShortCode: code,
		LongURL:   "https://example.com/" + code,
		ExpiresAt: expiresAt,
	}
	if owner != nil {
		link.UserID = &owner.ID
	}
	if err := tf.DB.DB.Create(link).Error; err != nil {
		return nil, fmt.Errorf("failed to create test link: %w", err)
	}
	return link, nil
}

// CreateTestClick records an unenriched click on link
func (tf *TestFixtures) CreateTestClick(link *models.Link, clickedAt time.Time) (*models.Click, error) {
	click := &models.Click{
		LinkID:    link.ID,
		ClickedAt: clickedAt,
		IPAddress: "8.8.8.8",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		Referer:   "https://news.ycombinator.com/",
	}
	if err := tf.DB.DB.Create(click).Error; err != nil {
		return nil, fmt.Errorf("failed to create test click: %w", err)
	}
	return click, nil
}
