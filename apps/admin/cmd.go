package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/kinga/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	usrSvc *user.Service
	db     *sql.DB // nil unless the postgres engine is configured
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -name NAME -email EMAIL [-role ROLE] - create an account; the password is prompted")
	fmt.Println("  resetpassword -email EMAIL                   - reset an account's password")
	fmt.Println("  ban -email EMAIL                             - deactivate an account")
	fmt.Println("  unban -email EMAIL                           - reactivate an account")
	fmt.Println("  migrate COMMAND [ARGS]                       - run database migrations (postgres only)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserName := addUserCmd.String("name", "", "The account's full name.")
	addUserEmail := addUserCmd.String("email", "", "The account's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", string(user.RoleDirection), "One of: student, staff, direction.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The new password will be prompted next.")

	banCmd := flag.NewFlagSet("ban", flag.ExitOnError)
	banEmail := banCmd.String("email", "", "The account's email.")

	unbanCmd := flag.NewFlagSet("unban", flag.ExitOnError)
	unbanEmail := unbanCmd.String("email", "", "The account's email.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errHelp {
				addUserCmd.Usage()
			}
			return err
		}
		return cli.addUser(*addUserName, *addUserEmail, *addUserRole, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errHelp {
				resetPasswordCmd.Usage()
			}
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "ban":
		if err := banCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *banEmail == "" {
			banCmd.Usage()
			return errHelp
		}
		return cli.setActive(*banEmail, false)

	case "unban":
		if err := unbanCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *unbanEmail == "" {
			unbanCmd.Usage()
			return errHelp
		}
		return cli.setActive(*unbanEmail, true)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) addUser(name, email, role, pwd string) error {
	data := user.NewUser{
		Name:            name,
		Email:           email,
		Role:            user.Role(role),
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := data.Validate(cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(context.Background(), data)
	if err != nil {
		return err
	}
	fmt.Printf("account %q created\n", usr.Email)
	return nil
}

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	data := user.UpdateUser{Password: pwd, PasswordConfirm: pwd}
	if err := data.Validate(usr, cli.usrSvc); err != nil {
		return err
	}
	if _, err = cli.usrSvc.Update(ctx, usr.ID, data); err != nil {
		return err
	}
	fmt.Printf("password reset for %q\n", usr.Email)
	return nil
}

func (cli *commandLine) setActive(email string, active bool) error {
	usr, err := cli.usrSvc.SetActive(context.Background(), email, active)
	if err != nil {
		return err
	}
	if active {
		fmt.Printf("account %q reactivated\n", usr.Email)
	} else {
		fmt.Printf("account %q deactivated\n", usr.Email)
	}
	return nil
}
