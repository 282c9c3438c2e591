package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/sakif/remo/internal/apperror"
	"github.com/sakif/remo/internal/auth"
	"github.com/sakif/remo/internal/model"
	"github.com/sakif/remo/internal/repository"
)

// RegisterInput is everything needed to create a rep. Empty optional
// strings are stored as NULL. Max lengths match the VARCHAR sizes in the
// migrations; validation errors name the json field.
type RegisterInput struct {
	Username    string `json:"username" validate:"required,max=30,username"`
	Password    string `json:"password" validate:"omitempty,min=8"` // GitHub-only accounts have none
	Email       string `json:"email" validate:"required,max=75,email"`
	FirstName   string `json:"first_name" validate:"max=30"`
	LastName    string `json:"last_name" validate:"max=30"`
	GitHubLogin string `json:"github_login" validate:"max=39"`

	DisplayName         string `json:"display_name" validate:"omitempty,max=15,display_name"`
	PrivateEmail        string `json:"private_email" validate:"omitempty,max=75,email"`
	PrivateEmailVisible *bool  `json:"private_email_visible"` // nil means true
	City                string `json:"city" validate:"max=30"`
	Region              string `json:"region" validate:"max=30"`
	Country             string `json:"country" validate:"max=30"`
	IRCName             string `json:"irc_name" validate:"max=30"`
	TwitterAccount      string `json:"twitter_account" validate:"max=16"`
	GPGKey              string `json:"gpg_key" validate:"max=10"`
	MozilliansURL       string `json:"mozillians_profile_url" validate:"required,max=200,http_url"`
	PersonalWebsiteURL  string `json:"personal_website_url" validate:"omitempty,max=200,http_url"`
	MentorUsername      string `json:"mentor"`
	InitialCouncil      bool   `json:"initial_council"`

	Groups   []string `json:"groups"`
	Channels []string `json:"channels"`
}

var (
	usernamePattern    = regexp.MustCompile(`^[\w.@+-]+$`)
	displayNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// validate is shared by every Register call; it caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("display_name", func(fl validator.FieldLevel) bool {
		return displayNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// ProfileService creates accounts with their profile, groups and channels.
type ProfileService struct {
	users     repository.UserRepository
	profiles  repository.ProfileRepository
	channels  repository.ChannelRepository
	reps      repository.RepRepository
	tx        repository.Transactor
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewProfileService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	channels repository.ChannelRepository,
	reps repository.RepRepository,
	tx repository.Transactor,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		users:     users,
		profiles:  profiles,
		channels:  channels,
		reps:      reps,
		tx:        tx,
		passwords: passwords,
		logger:    logger,
	}
}

// Register validates in and creates the user, their profile, group
// memberships and channel memberships in one transaction: either the whole
// rep exists afterwards or nothing does.
//
// Channels are looked up by name and created on first use. A taken username,
// GitHub login or display name comes back as apperror.ErrConflict.
func (s *ProfileService) Register(ctx context.Context, in RegisterInput) (*model.Rep, error) {
	in = normalize(in)
	if err := validateRegister(in); err != nil {
		return nil, err
	}

	var hash string
	if in.Password != "" {
		h, err := s.passwords.Hash(in.Password)
		if err != nil {
			return nil, apperror.ValidationFailed("password", err.Error())
		}
		hash = h
	}

	var userID string
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		user := &model.User{
			Username:     in.Username,
			Email:        in.Email,
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			PasswordHash: hash,
			GitHubLogin:  nullable(in.GitHubLogin),
			IsActive:     true,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return err
		}
		userID = user.ID

		profile := &model.UserProfile{
			UserID:              user.ID,
			DisplayName:         nullable(in.DisplayName),
			PrivateEmail:        nullable(in.PrivateEmail),
			PrivateEmailVisible: lo.FromPtrOr(in.PrivateEmailVisible, true),
			City:                nullable(in.City),
			Region:              nullable(in.Region),
			Country:             nullable(in.Country),
			IRCName:             nullable(in.IRCName),
			TwitterAccount:      nullable(in.TwitterAccount),
			GPGKey:              nullable(in.GPGKey),
			MozilliansURL:       in.MozilliansURL,
			PersonalWebsiteURL:  nullable(in.PersonalWebsiteURL),
			InitialCouncil:      in.InitialCouncil,
		}
		if in.MentorUsername != "" {
			mentor, err := s.users.GetUserByUsername(ctx, in.MentorUsername)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					return apperror.ValidationFailed("mentor",
						fmt.Sprintf("mentor %q does not exist", in.MentorUsername))
				}
				return err
			}
			profile.MentorID = &mentor.ID
		}
		if err := s.profiles.CreateProfile(ctx, profile); err != nil {
			return err
		}

		for _, g := range in.Groups {
			if err := s.users.AddUserToGroup(ctx, user.ID, g); err != nil {
				return err
			}
		}

		for _, name := range in.Channels {
			ch, err := s.channels.GetChannelByName(ctx, name)
			if errors.Is(err, apperror.ErrNotFound) {
				ch = &model.IRCChannel{Name: name}
				err = s.channels.CreateChannel(ctx, ch)
			}
			if err != nil {
				return err
			}
			if err := s.channels.JoinChannel(ctx, profile.ID, ch.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		s.logger.Error("failed to register rep",
			slog.String("username", in.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("registering %q: %w", in.Username, err)
	}

	s.logger.Info("rep registered",
		slog.String("userID", userID),
		slog.String("username", in.Username),
		slog.Any("groups", in.Groups),
	)

	return s.reps.GetRep(ctx, userID)
}

func normalize(in RegisterInput) RegisterInput {
	trim := strings.TrimSpace
	in.Username = trim(in.Username)
	in.Email = trim(in.Email)
	in.FirstName = trim(in.FirstName)
	in.LastName = trim(in.LastName)
	in.GitHubLogin = trim(in.GitHubLogin)
	in.DisplayName = trim(in.DisplayName)
	in.PrivateEmail = trim(in.PrivateEmail)
	in.City = trim(in.City)
	in.Region = trim(in.Region)
	in.Country = trim(in.Country)
	in.IRCName = trim(in.IRCName)
	in.TwitterAccount = strings.TrimPrefix(trim(in.TwitterAccount), "@")
	in.GPGKey = trim(in.GPGKey)
	in.MozilliansURL = trim(in.MozilliansURL)
	in.PersonalWebsiteURL = trim(in.PersonalWebsiteURL)
	in.MentorUsername = trim(in.MentorUsername)
	in.Groups = lo.Uniq(lo.Compact(lo.Map(in.Groups, func(g string, _ int) string { return trim(g) })))
	in.Channels = lo.Uniq(lo.Compact(lo.Map(in.Channels, func(c string, _ int) string { return trim(c) })))
	return in
}

// validateRegister returns the first problem found, naming the field.
func validateRegister(in RegisterInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating registration: %w", err)
	}
	fe := fieldErrs[0]
	return apperror.ValidationFailed(fe.Field(), validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%q is not a valid email address", fe.Value())
	case "http_url":
		return fmt.Sprintf("%q is not a valid http(s) URL", fe.Value())
	case "username":
		return "username may contain only letters, digits and @.+-_"
	case "display_name":
		return "display name may contain only letters, digits and underscores"
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

// nullable maps "" to NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
