// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Registration is the input for Register.
type Registration struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Address   string
	Gender    string
	AvatarURL string

	// Role defaults to RoleUser.
	Role string
}

// Profile is the public view of a user.
type Profile struct {
	UserID    ulid.ULID
	Username  string
	AvatarURL string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	Gender    string
}

// ProfileUpdate holds editable profile fields. Empty Email and AvatarURL keep the
// stored values; other fields are written as given.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	Gender    string
	AvatarURL string
}

func profileOf(u *User) *Profile {
	return &Profile{
		UserID:    u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Address:   u.Address,
		Gender:    u.Gender,
	}
}

func errDuplicateIdentity() error {
	return oops.Code(CodeDuplicateIdentity).Errorf("username or email address already exists in another account")
}

// Register creates a user and assigns its initial role in one transaction.
func (s *Service) Register(ctx context.Context, reg Registration) (user *User, err error) {
	ctx, done := s.begin(ctx, "register")
	defer done(&err)

	if err := ValidateUsername(reg.Username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(reg.Email); err != nil {
		return nil, err
	}
	if err := ValidatePhone(reg.Phone); err != nil {
		return nil, err
	}
	if reg.Password == "" {
		return nil, invalidInput("password cannot be empty")
	}
	roleName := reg.Role
	if roleName == "" {
		roleName = RoleUser
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, reg.Username, reg.Email)
	if err != nil {
		return nil, s.fail(ctx, "check identity", err)
	}
	if exists {
		return nil, errDuplicateIdentity()
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, s.fail(ctx, "hash password", err)
	}

	avatar := reg.AvatarURL
	if avatar == "" {
		avatar = DefaultAvatar
	}
	now := s.now()
	user = &User{
		ID:           ulid.Make(),
		Username:     reg.Username,
		Email:        reg.Email,
		Phone:        reg.Phone,
		PasswordHash: hash,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Address:      reg.Address,
		Gender:       reg.Gender,
		AvatarURL:    avatar,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		role, err := s.roles.GetByName(ctx, roleName)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errUnknownRole(roleName)
			}
			return err
		}
		// The pre-check above races with concurrent registrations; the unique
		// indexes are authoritative.
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return errDuplicateIdentity()
			}
			return err
		}
		return s.roles.Replace(ctx, user.ID, role.ID)
	})
	if err != nil {
		return nil, s.fail(ctx, "register user", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String(), "role", roleName)
	return user, nil
}

// GetProfile returns the profile of userID.
func (s *Service) GetProfile(ctx context.Context, userID ulid.ULID) (profile *Profile, err error) {
	ctx, done := s.begin(ctx, "get_profile")
	defer done(&err)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errUserNotFound(userID)
		}
		return nil, s.fail(ctx, "get user", err)
	}
	return profileOf(user), nil
}

// UpdateProfile applies upd to userID and returns the stored result.
func (s *Service) UpdateProfile(ctx context.Context, userID ulid.ULID, upd ProfileUpdate) (profile *Profile, err error) {
	ctx, done := s.begin(ctx, "update_profile")
	defer done(&err)

	if upd.Email != "" {
		if err := ValidateEmail(upd.Email); err != nil {
			return nil, err
		}
	}
	if err := ValidatePhone(upd.Phone); err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Lock(ctx, userID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return errUserNotFound(userID)
			}
			return err
		}
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errUserNotFound(userID)
			}
			return err
		}

		user.FirstName = upd.FirstName
		user.LastName = upd.LastName
		user.Phone = upd.Phone
		user.Address = upd.Address
		user.Gender = upd.Gender
		if upd.Email != "" {
			user.Email = upd.Email
		}
		if upd.AvatarURL != "" {
			user.AvatarURL = upd.AvatarURL
		}
		user.UpdatedAt = s.now()

		if err := s.users.UpdateProfile(ctx, user); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return errDuplicateIdentity()
			}
			return err
		}
		profile = profileOf(user)
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "update profile", err)
	}
	return profile, nil
}
