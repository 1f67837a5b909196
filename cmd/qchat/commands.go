// ABOUTME: Subcommand handlers for the qchat CLI
// ABOUTME: Each handler calls into the core and renders the typed result

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

func (a *app) runSignUp(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: qchat signup <email> <password> <username>")
	}

	user, err := a.sessions.SignUp(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}

	color.Green("Account created for %s (%s)", user.Username, user.Email)
	return nil
}

func (a *app) runSignIn(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: qchat signin <email> <password>")
	}

	user, err := a.sessions.SignIn(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	color.Green("Signed in as %s", user.Username)
	return nil
}

func (a *app) runSignOut() error {
	a.sessions.SignOut()
	color.Green("Signed out")
	return nil
}

func (a *app) runWhoami() error {
	state := a.sessions.CurrentState()
	if !state.Authenticated {
		fmt.Println("Not signed in")
		return nil
	}

	fmt.Printf("%s <%s>\n", state.User.Username, state.User.Email)
	fmt.Printf("Account created %s\n", state.User.CreatedAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func (a *app) runContacts(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "add":
		if len(args) != 3 {
			return fmt.Errorf("usage: qchat contacts add <name> <username>")
		}
		contact, err := a.contacts.Add(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		color.Green("Added %s (@%s)", contact.Name, contact.Username)
		fmt.Printf("  id:            %s\n", contact.ID)
		fmt.Printf("  safety number: %s\n", contact.SafetyNumber)
		return nil

	case "list":
		list, err := a.contacts.List(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No contacts yet")
			return nil
		}
		for _, c := range list {
			mark := " "
			if c.Verified {
				mark = color.GreenString("✓")
			}
			fmt.Printf("%s %-20s @%-15s %s\n", mark, c.Name, c.Username, c.ID)
		}
		return nil

	case "verify":
		if len(args) != 2 {
			return fmt.Errorf("usage: qchat contacts verify <id>")
		}
		contact, err := a.contacts.Verify(ctx, args[1])
		if err != nil {
			return err
		}
		color.Green("Verified %s", contact.Name)
		fmt.Printf("  safety number: %s\n", contact.SafetyNumber)
		return nil

	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("usage: qchat contacts rm <id>")
		}
		if err := a.contacts.Remove(ctx, args[1]); err != nil {
			return err
		}
		color.Green("Contact removed (messages kept)")
		return nil
	}

	return fmt.Errorf("unknown contacts subcommand: %s", args[0])
}

func (a *app) runSend(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: qchat send <contact-id> <text>")
	}

	msg, err := a.messages.Send(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	color.Green("Sent %s", msg.ID)
	return nil
}

func (a *app) runHistory(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: qchat history <contact-id>")
	}

	msgs, err := a.messages.History(ctx, args[0])
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Println("No messages")
		return nil
	}

	for _, m := range msgs {
		dir := "<-"
		if m.IsOutgoing {
			dir = "->"
		}
		fmt.Printf("%s %s %s\n", m.Timestamp.Local().Format("2006-01-02 15:04:05"), dir, m.Content)
	}
	return nil
}

func (a *app) runProfile(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: qchat profile <username> [avatar]")
	}

	var avatar *string
	if len(args) == 2 {
		avatar = &args[1]
	}

	user, err := a.settings.UpdateProfile(ctx, args[0], avatar)
	if err != nil {
		return err
	}

	color.Green("Profile updated: %s", user.Username)
	return nil
}

func (a *app) runSettings(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s, err := a.settings.Load(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("hybrid mode:     %v\n", s.HybridMode)
		fmt.Printf("device verified: %v\n", s.DeviceVerified)
		fmt.Printf("last updated:    %s\n", s.LastUpdated.Local().Format("2006-01-02 15:04:05"))
		return nil
	}

	if len(args) != 2 {
		return fmt.Errorf("usage: qchat settings [hybrid on|off] [device-verified on|off]")
	}

	enabled := args[1] == "on"
	switch args[0] {
	case "hybrid":
		if _, err := a.settings.SetHybridMode(ctx, enabled); err != nil {
			return err
		}
	case "device-verified":
		if _, err := a.settings.SetDeviceVerified(ctx, enabled); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown setting: %s", args[0])
	}

	color.Green("Settings updated")
	return nil
}
