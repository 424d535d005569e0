package users

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/soundstack/soundstack/internal/app/domain/song"
	"github.com/soundstack/soundstack/internal/app/domain/user"
	"github.com/soundstack/soundstack/internal/app/storage"
	svcerrors "github.com/soundstack/soundstack/internal/errors"
	"github.com/soundstack/soundstack/internal/validate"
	"github.com/soundstack/soundstack/pkg/logger"
)

// SignupInput is the body of POST /api/users.
type SignupInput struct {
	Username string `json:"username" validate:"required,min=4,max=30,notemail"`
	Email    string `json:"email" validate:"required,email,max=256"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginInput is the body of POST /api/session. Credential is a username or email.
type LoginInput struct {
	Credential string `json:"credential" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Profile is a user's public view plus their uploads.
type Profile struct {
	User  user.Public `json:"user"`
	Songs []song.Song `json:"songs"`
}

// Service manages accounts and credentials.
type Service struct {
	users storage.UserStore
	songs storage.SongStore
	cost  int
	log   *logger.Logger
}

// New constructs a user service.
func New(users storage.UserStore, songs storage.SongStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{users: users, songs: songs, cost: bcrypt.DefaultCost, log: log}
}

// WithHashCost overrides the bcrypt cost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

// Signup validates in, rejects taken usernames or emails, and stores the new user.
func (s *Service) Signup(ctx context.Context, in SignupInput) (user.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return user.User{}, err
	}

	var taken validate.Errors
	if _, err := s.lookup(ctx, in.Username); err == nil {
		taken = append(taken, "username must be unique")
	} else if !stderrors.Is(err, storage.ErrNotFound) {
		return user.User{}, err
	}
	if _, err := s.lookup(ctx, in.Email); err == nil {
		taken = append(taken, "email must be unique")
	} else if !stderrors.Is(err, storage.ErrNotFound) {
		return user.User{}, err
	}
	if len(taken) > 0 {
		return user.User{}, taken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if stderrors.Is(err, bcrypt.ErrPasswordTooLong) {
		// max=72 counts characters; bcrypt counts bytes.
		return user.User{}, validate.Errors{"password must be at most 72 bytes"}
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "hash password")
	}

	created, err := s.users.CreateUser(ctx, user.User{
		Username:       in.Username,
		Email:          in.Email,
		HashedPassword: hash,
	})
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", created.ID).Info("user signed up")
	return created, nil
}

// Login checks the credential and password pair.
func (s *Service) Login(ctx context.Context, in LoginInput) (user.User, error) {
	if err := validate.Struct(in); err != nil {
		return user.User{}, err
	}
	u, err := s.lookup(ctx, strings.TrimSpace(in.Credential))
	if stderrors.Is(err, storage.ErrNotFound) {
		return user.User{}, svcerrors.InvalidCredentials()
	}
	if err != nil {
		return user.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(u.HashedPassword, []byte(in.Password)); err != nil {
		s.log.WithField("user_id", u.ID).Warn("failed login")
		return user.User{}, svcerrors.InvalidCredentials()
	}
	return u, nil
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.users.GetUser(ctx, id)
}

// Profile returns the public profile and songs of a user.
func (s *Service) Profile(ctx context.Context, id string) (Profile, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	songs, err := s.songs.ListSongsByUser(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if songs == nil {
		songs = []song.Song{}
	}
	return Profile{User: u.ToPublic(), Songs: songs}, nil
}

func (s *Service) lookup(ctx context.Context, credential string) (user.User, error) {
	if credential == "" {
		return user.User{}, storage.ErrNotFound
	}
	return s.users.GetUserByCredential(ctx, credential)
}
