package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/practice-backend/internal/config"
	"github.com/stemsi/practice-backend/internal/identity"
	"github.com/stemsi/practice-backend/internal/logger"
	"golang.org/x/term"
)

// issue-token mints a bearer token for local testing. Flags win; anything
// missing is prompted for when stdin is a terminal.
func main() {
	var (
		userFlag string
		roleFlag string
		ttl      time.Duration
	)
	flag.StringVar(&userFlag, "user", "", "User ID (UUID); generated when empty")
	flag.StringVar(&roleFlag, "role", "", "Role: learner or author")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "")

	interactive := term.IsTerminal(int(syscall.Stdin))
	reader := bufio.NewReader(os.Stdin)

	// ─── CLI Input ─────────────────────────────────────────────────────
	if roleFlag == "" && interactive {
		fmt.Print("Enter Role (learner/author, default learner): ")
		roleFlag, _ = reader.ReadString('\n')
		roleFlag = strings.TrimSpace(roleFlag)
	}
	role := identity.RoleLearner
	switch roleFlag {
	case "", string(identity.RoleLearner):
	case string(identity.RoleAuthor):
		role = identity.RoleAuthor
	default:
		fmt.Println("Error: role must be learner or author")
		os.Exit(1)
	}

	if userFlag == "" && interactive {
		fmt.Print("Enter User ID (blank generates one): ")
		userFlag, _ = reader.ReadString('\n')
		userFlag = strings.TrimSpace(userFlag)
	}
	userID := uuid.New()
	if userFlag != "" {
		parsed, err := uuid.Parse(userFlag)
		if err != nil {
			fmt.Println("Error: user ID must be a UUID")
			os.Exit(1)
		}
		userID = parsed
	}

	secret := cfg.JWTSecret
	if interactive {
		fmt.Print("Enter signing secret (blank uses JWT_SECRET): ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // Newline after secret input
		if err != nil {
			fmt.Println("Error reading secret")
			os.Exit(1)
		}
		if s := strings.TrimSpace(string(raw)); s != "" {
			secret = s
		}
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	token, err := identity.NewJWTProvider(secret).Issue(userID, role, ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	if interactive {
		fmt.Printf("\nUser %s (%s), expires in %s:\n", userID, role, ttl)
	}
	fmt.Println(token)
}
