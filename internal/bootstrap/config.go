package bootstrap

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

// Config holds configuration for seeding a store from fixtures.
type Config struct {
	Stores   *store.Stores
	Fixtures *Fixtures
}

// Fixtures is the YAML document accepted by the seed command.
//
//	platform_users:
//	  - id: 0199...            # subject issued by the auth provider
//	    email: root@telodox.com
//	    role: super_admin
//	tenants:
//	  - name: TeleConnect Solutions
//	    subdomain: teleconnect
//	    users: [...]
//	    templates: [...]
//	    applications: [...]
type Fixtures struct {
	PlatformUsers []UserFixture   `yaml:"platform_users"`
	Tenants       []TenantFixture `yaml:"tenants"`
}

type TenantFixture struct {
	Name               string                    `yaml:"name"`
	Subdomain          string                    `yaml:"subdomain"`
	SubscriptionStatus models.SubscriptionStatus `yaml:"subscription_status"`
	Settings           *models.TenantSettings    `yaml:"settings"`
	Users              []UserFixture             `yaml:"users"`
	Templates          []TemplateFixture         `yaml:"templates"`
	Applications       []ApplicationFixture      `yaml:"applications"`
}

type UserFixture struct {
	ID               uuid.UUID       `yaml:"id"`
	Email            string          `yaml:"email"`
	FullName         string          `yaml:"full_name"`
	Role             models.Role     `yaml:"role"`
	OrganizationRole *models.OrgRole `yaml:"organization_role"`
}

type TemplateFixture struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description"`
	FormType    models.FormType     `yaml:"form_type"`
	Fields      []models.FormField  `yaml:"fields"`
	Settings    models.FormSettings `yaml:"settings"`
}

type ApplicationFixture struct {
	CarrierName  string `yaml:"carrier_name"`
	CarrierEmail string `yaml:"carrier_email"`
	// Owner is the email of a user declared in the same document.
	Owner  string            `yaml:"owner"`
	Stages []models.FormType `yaml:"stages"`
}

// LoadFixtures reads and validates a fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes a YAML fixtures document and validates it.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML fixtures: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the document before anything is written.
func (f *Fixtures) Validate() error {
	emails := map[string]struct{}{}
	checkUser := func(u UserFixture) error {
		if u.ID == uuid.Nil {
			return fmt.Errorf("user %q has no id", u.Email)
		}
		if !u.Role.Valid() {
			return fmt.Errorf("user %q has invalid role %q", u.Email, u.Role)
		}
		if u.OrganizationRole != nil && !u.OrganizationRole.Valid() {
			return fmt.Errorf("user %q has invalid organization role %q", u.Email, *u.OrganizationRole)
		}
		emails[u.Email] = struct{}{}
		return nil
	}

	for _, u := range f.PlatformUsers {
		if u.OrganizationRole != nil {
			return fmt.Errorf("platform user %q cannot have an organization role", u.Email)
		}
		if err := checkUser(u); err != nil {
			return err
		}
	}

	for _, t := range f.Tenants {
		for _, u := range t.Users {
			if err := checkUser(u); err != nil {
				return err
			}
		}
	}

	subdomains := map[string]struct{}{}
	for _, t := range f.Tenants {
		if t.Name == "" || t.Subdomain == "" {
			return fmt.Errorf("tenant %q needs a name and a subdomain", t.Subdomain)
		}
		if _, dup := subdomains[t.Subdomain]; dup {
			return fmt.Errorf("duplicate subdomain %q", t.Subdomain)
		}
		subdomains[t.Subdomain] = struct{}{}
		if t.SubscriptionStatus != "" && !t.SubscriptionStatus.Valid() {
			return fmt.Errorf("tenant %q has invalid subscription status %q", t.Subdomain, t.SubscriptionStatus)
		}
		for _, tmpl := range t.Templates {
			candidate := models.FormTemplate{FormType: tmpl.FormType, Fields: tmpl.Fields}
			if err := candidate.Validate(); err != nil {
				return fmt.Errorf("template %q: %w", tmpl.Name, err)
			}
		}
		for _, app := range t.Applications {
			if len(app.Stages) == 0 {
				return fmt.Errorf("application %q has no stages", app.CarrierName)
			}
			for _, stage := range app.Stages {
				if !stage.Valid() {
					return fmt.Errorf("application %q has invalid stage %q", app.CarrierName, stage)
				}
			}
			if app.Owner != "" {
				if _, ok := emails[app.Owner]; !ok {
					return fmt.Errorf("application %q owner %q is not declared", app.CarrierName, app.Owner)
				}
			}
		}
	}
	return nil
}
