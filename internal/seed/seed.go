// Package seed provisions the minimum records a fresh install needs: an
// administrator, a default reset template and, optionally, web services
// declared in a YAML file. Every step is idempotent so the seeder can run
// on each startup.
package seed

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/dvizioon/oxypass/internal/domain"
	"github.com/dvizioon/oxypass/internal/repository/ports"
	"github.com/dvizioon/oxypass/internal/util"
)

const (
	defaultAdminEmail    = "admin@oxypass.com"
	defaultAdminPassword = "changeme"
	defaultTemplateName  = "Password Reset (default)"
)

var defaultTemplateContent = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Hello {{user.firstname}},</h2>
  <p>We received a request to reset the password for the account <strong>{{user.username}}</strong>.</p>
  <p><a href="{{reset.link}}" style="background: #2d6cdf; color: #fff; padding: 10px 18px; border-radius: 4px; text-decoration: none;">Reset my password</a></p>
  <p>This link expires in {{reset.expirationTime}}. If the button does not work, use this code:</p>
  <p><code>{{reset.token(50)}}</code></p>
  <p>If you did not request this, you can safely ignore this message.</p>
  <p>— {{system.name}}</p>
</body>
</html>`

// File is the optional YAML seed document.
type File struct {
	Admin *struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"admin"`
	WebServices []struct {
		Protocol    string `json:"protocol"`
		URL         string `json:"url"`
		Token       string `json:"token"`
		Route       string `json:"route"`
		ServiceName string `json:"serviceName"`
	} `json:"webservices"`
}

type Seeder struct {
	users     ports.UserRepository
	templates ports.EmailTemplateRepository
	services  ports.WebServiceRepository
	logger    *log.Logger
}

func New(users ports.UserRepository, templates ports.EmailTemplateRepository, services ports.WebServiceRepository, logger *log.Logger) *Seeder {
	if logger == nil {
		logger = log.Default()
	}
	return &Seeder{users: users, templates: templates, services: services, logger: logger}
}

// Run applies the built-in defaults and then the YAML file at path, when one
// is configured.
func (s *Seeder) Run(ctx context.Context, path string) error {
	var file File
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parse seed file: %w", err)
		}
	}

	if err := s.seedAdmin(ctx, file); err != nil {
		return err
	}
	if err := s.seedDefaultTemplate(ctx); err != nil {
		return err
	}
	return s.seedWebServices(ctx, file)
}

func (s *Seeder) seedAdmin(ctx context.Context, file File) error {
	name, email, password := "Administrator", defaultAdminEmail, defaultAdminPassword
	if file.Admin != nil {
		if file.Admin.Name != "" {
			name = file.Admin.Name
		}
		if file.Admin.Email != "" {
			email = strings.ToLower(file.Admin.Email)
		}
		if file.Admin.Password != "" {
			password = file.Admin.Password
		}
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil
	}

	hash, salt, err := util.DerivePassword(password)
	if err != nil {
		return fmt.Errorf("derive admin password: %w", err)
	}
	if _, err := s.users.Create(ctx, name, email, hash, salt, domain.RoleAdmin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.logger.Printf("seeded admin account %s", email)
	if password == defaultAdminPassword {
		s.logger.Printf("admin uses the default password, change it")
	}
	return nil
}

func (s *Seeder) seedDefaultTemplate(ctx context.Context) error {
	if _, err := s.templates.FindDefault(ctx); err == nil {
		return nil
	}

	_, err := s.templates.Create(ctx, ports.EmailTemplateInput{
		Name:      defaultTemplateName,
		Subject:   "Reset your {{system.name}} password",
		Content:   defaultTemplateContent,
		Type:      domain.TemplateTypeHTML,
		IsActive:  true,
		IsDefault: true,
	})
	if err != nil {
		return fmt.Errorf("seed default template: %w", err)
	}
	s.logger.Printf("seeded default reset template")
	return nil
}

func (s *Seeder) seedWebServices(ctx context.Context, file File) error {
	for _, ws := range file.WebServices {
		url := strings.TrimSpace(ws.URL)
		if url == "" {
			continue
		}
		if _, err := s.services.FindActiveByURL(ctx, url); err == nil {
			continue
		}
		input := ports.WebServiceInput{
			Protocol:    ws.Protocol,
			URL:         url,
			Token:       ws.Token,
			Route:       ws.Route,
			ServiceName: ws.ServiceName,
			IsActive:    true,
		}
		if input.Protocol == "" {
			input.Protocol = domain.ProtocolHTTPS
		}
		if input.Route == "" {
			input.Route = domain.DefaultWebServiceRoute
		}
		if input.ServiceName == "" {
			input.ServiceName = url
		}
		if _, err := s.services.Create(ctx, input); err != nil {
			return fmt.Errorf("seed web service %s: %w", url, err)
		}
		s.logger.Printf("seeded web service %s", url)
	}
	return nil
}
