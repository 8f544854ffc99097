// Package queue defines message payloads exchanged over the message broker.
package queue

// OTPEmailEvent is published when a registration issues a fresh
// verification code. The consumer delivers the code by mail; the
// payload carries everything needed for delivery so the consumer
// never touches the primary database.
type OTPEmailEvent struct {
    Email    string `json:"email"`
    Name     string `json:"name"`
    Code     string `json:"code"`
    IssuedAt string `json:"issued_at"`
}
