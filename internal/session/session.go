// Package session holds the identity of the user of one chat session and,
// optionally, mirrors its presence into Redis so operators can see which
// sessions are connected and logged in.
package session
