package model

import "time"

// User represents an application user record as stored in the
// `users` table.  Each field corresponds to a column.  Nullable
// columns use pointer types so that an absent value has a defined
// cleared state distinct from the zero value; OTPCode and
// OTPExpiresAt are always set and cleared together.
//
// Fields:
//  ID           – primary key (UUID string).
//  Name         – display name of the user.
//  Email        – unique, lower‑cased email address.
//  PasswordHash – bcrypt hashed password (nil for provider‑only accounts).
//  ProviderID   – external identity provider id (nil when never linked).
//  IsVerified   – whether email ownership has been proven (OTP or provider).
//  OTPCode      – pending 6‑digit verification code (nil when none pending).
//  OTPExpiresAt – expiry of the pending code (nil when none pending).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           string     // users.id
    Name         string     // users.name
    Email        string     // users.email
    PasswordHash *string    // users.password_hash (nullable)
    ProviderID   *string    // users.provider_id (nullable, unique)
    IsVerified   bool       // users.is_verified
    OTPCode      *string    // users.otp_code (nullable)
    OTPExpiresAt *time.Time // users.otp_expires_at (nullable)
    CreatedAt    time.Time  // users.created_at
    UpdatedAt    time.Time  // users.updated_at
}

// HasPendingOTP reports whether the user has an unverified challenge
// outstanding.  Both OTP fields are present together or not at all.
func (u *User) HasPendingOTP() bool {
    return u.OTPCode != nil && u.OTPExpiresAt != nil
}
