package main

import (
	"bufio"
	"cmp"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/atinyakov/mottokeeper/internal/client/api"
	"github.com/atinyakov/mottokeeper/internal/client/storage"
)

// defaultAppVersion is sent when the binary was built without -ldflags.
const defaultAppVersion = "1.2.0"

const requestTimeout = 2 * time.Minute

var (
	version   string
	buildDate string
)

// session ties the API client to the locally stored login.
type session struct {
	client *api.Client
	ls     *storage.LocalStorage
}

func (s *session) register(username, password string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	res, err := s.client.Register(ctx, username, password)
	if err != nil {
		return err
	}
	s.remember(res.User.Username, res.Token)
	fmt.Printf("Registered %s (id %d)\n", res.User.Username, res.User.ID)
	return nil
}

func (s *session) login(username, password string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	token, err := s.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	s.remember(username, token)
	fmt.Printf("Logged in as %s\n", username)
	return nil
}

func (s *session) whoami() error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	p, err := s.client.Profile(ctx)
	if err != nil {
		return err
	}
	motto := "(none yet)"
	if p.Motto != nil {
		motto = *p.Motto
	}
	fmt.Printf("ID: %d\nUsername: %s\nMotto: %s\n", p.ID, p.Username, motto)
	return nil
}

func (s *session) upload(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	msg, err := s.client.Upload(ctx, path)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func (s *session) logout() {
	s.ls.Clear()
	s.client.Token = ""
	_ = s.ls.Save()
	fmt.Println("Logged out")
}

func (s *session) remember(username, token string) {
	s.client.Token = token
	s.ls.Set(s.client.BaseURL, username, token)
	if err := s.ls.Save(); err != nil {
		fmt.Println("failed to save session:", err)
	}
}

// repl runs the interactive shell loop.
func repl(s *session) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("mottokeeper> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		var err error
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, register, login, whoami, upload [path], logout, exit")
		case "register":
			err = s.register(storage.PromptCredentials(scanner))
		case "login":
			err = s.login(storage.PromptCredentials(scanner))
		case "whoami":
			err = s.whoami()
		case "upload":
			var path string
			if len(args) > 1 {
				path = args[1]
			} else {
				path = storage.PromptAudioFile(scanner)
			}
			if path == "" {
				fmt.Println("Usage: upload <path>")
				continue
			}
			err = s.upload(path)
		case "logout":
			s.logout()
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
		if err != nil {
			fmt.Println("Error:", err)
		}
	}
}

// main parses command-line flags and dispatches to the requested command.
func main() {
	var (
		cmd         string
		baseURL     string
		username    string
		password    string
		file        string
		sessionFile string
		showVer     bool
	)

	flag.StringVar(&cmd, "cmd", "shell", "command: register | login | whoami | upload | shell")
	flag.StringVar(&baseURL, "url", "http://localhost:3002", "server base URL")
	flag.StringVar(&username, "username", "", "username for register/login")
	flag.StringVar(&password, "password", "", "password for register/login")
	flag.StringVar(&file, "file", "", "recording to upload")
	flag.StringVar(&sessionFile, "session", "session.json", "path to the session file")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("mottokeeper client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	ls := &storage.LocalStorage{Path: sessionFile}
	if err := ls.Load(); err != nil {
		log.Fatalf("load session: %v", err)
	}
	client := api.New(baseURL, cmp.Or(version, defaultAppVersion))
	client.Token = ls.Token(client.BaseURL)
	s := &session{client: client, ls: ls}

	var err error
	switch cmd {
	case "register", "login":
		if username == "" || password == "" {
			log.Fatal("please provide -username and -password")
		}
		if cmd == "register" {
			err = s.register(username, password)
		} else {
			err = s.login(username, password)
		}
	case "whoami":
		err = s.whoami()
	case "upload":
		if file == "" {
			log.Fatal("please provide -file=path")
		}
		err = s.upload(file)
	case "shell":
		repl(s)
	default:
		log.Fatalf("unknown command: %s", cmd)
	}
	if err != nil {
		log.Fatal(err)
	}
}
