package negma

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// SystemProfilePath is the NixOS system profile managed by nix-env.
const SystemProfilePath = "/nix/var/nix/profiles/system"

// ProfileKind selects which generation-tracked profile an action targets.
type ProfileKind int

const (
	// SystemProfileKind is the NixOS system profile (the "nix" verbs).
	SystemProfileKind ProfileKind = iota
	// HomeProfileKind is the Home Manager user environment (the "home" verbs).
	HomeProfileKind
)

func (k ProfileKind) String() string {
	switch k {
	case SystemProfileKind:
		return "nix"
	case HomeProfileKind:
		return "home"
	default:
		return fmt.Sprintf("ProfileKind(%d)", int(k))
	}
}

// Command is an external program invocation.
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Profile is a tagged union over the two profile kinds. Each case carries
// its listing line format and the command templates for its verbs; both
// converge on Generation and RollbackTarget.
type Profile interface {
	Kind() ProfileKind

	// RequiresPrivilege reports whether mutating actions need root.
	RequiresPrivilege() bool

	BuildCommand() Command
	GCCommand() Command
	CleanCommand() Command
	ListCommand() Command
	RollbackCommand(target Generation) (Command, error)

	parseLine(line string) (Generation, error)
}

// SystemProfile drives nixos-rebuild and nix-env against the system profile.
type SystemProfile struct {
	// Flake is passed to nixos-rebuild as --flake when set.
	Flake string
}

func (SystemProfile) Kind() ProfileKind { return SystemProfileKind }
func (SystemProfile) RequiresPrivilege() bool { return true }
func (SystemProfile) GCCommand() Command { return Command{Name: "nix-collect-garbage", Args: []string{"-d"}} }
func (p SystemProfile) parseLine(line string) (Generation, error) { return parseSystemLine(line) }

func (p SystemProfile) BuildCommand() Command {
	args := []string{"switch"}
	if p.Flake != "" {
		args = append(args, "--flake", p.Flake)
	}
	return Command{Name: "nixos-rebuild", Args: args}
}

func (SystemProfile) CleanCommand() Command {
	return Command{Name: "nix-env", Args: []string{"--profile", SystemProfilePath, "--delete-generations", "old"}}
}

func (SystemProfile) ListCommand() Command {
	return Command{Name: "nix-env", Args: []string{"--profile", SystemProfilePath, "--list-generations"}}
}

func (SystemProfile) RollbackCommand(target Generation) (Command, error) {
	return Command{
		Name: "nix-env",
		Args: []string{"--profile", SystemProfilePath, "--switch-generation", strconv.Itoa(target.ID)},
	}, nil
}

// HomeProfile drives home-manager for the invoking user.
type HomeProfile struct{}

func (HomeProfile) Kind() ProfileKind { return HomeProfileKind }
func (HomeProfile) RequiresPrivilege() bool { return false }
func (HomeProfile) BuildCommand() Command { return Command{Name: "home-manager", Args: []string{"switch"}} }
func (HomeProfile) GCCommand() Command { return Command{Name: "nix-collect-garbage", Args: []string{"-d"}} }
func (HomeProfile) ListCommand() Command { return Command{Name: "home-manager", Args: []string{"generations"}} }
func (p HomeProfile) parseLine(line string) (Generation, error) { return parseHomeLine(line) }

func (HomeProfile) CleanCommand() Command {
	return Command{Name: "home-manager", Args: []string{"expire-generations", "-0 days"}}
}

// RollbackCommand runs the activation script of the target generation, which
// is how home-manager switches to an older generation.
func (HomeProfile) RollbackCommand(target Generation) (Command, error) {
	if target.StorePath == "" {
		return Command{}, fmt.Errorf("generation %d has no activation path", target.ID)
	}
	return Command{Name: filepath.Join(target.StorePath, "activate")}, nil
}
