// kos-chat - терминальный клиент чата аренды
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"kos_chat/internal/config"
	"kos_chat/internal/domain"
	"kos_chat/internal/repository"
	"kos_chat/internal/service"
	apperrors "kos_chat/pkg/errors"
	"kos_chat/pkg/logger"
)

const sessionID = "current"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	exitOnError(err)

	log := logger.NewConsole(os.Getenv("LOG_LEVEL"))
	store := repository.NewFileSessionStore(cfg.Session.Dir)
	repos := repository.NewRepositories(cfg.Backend.URL, cfg.Backend.Timeout, log)
	services := service.NewServices(repos, cfg, consoleNotifier{}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := os.Args[1]
	switch cmd {
	case "session":
		runSession(ctx, store, os.Args[2:])

	case "rooms":
		sess := loadSession(ctx, store)
		rooms, err := services.Room.ListForUser(ctx, sess)
		exitOnError(err)
		for _, r := range rooms {
			fmt.Printf("  %s  %s  %s\n", r.RoomChatID, r.LawanUserEmail, formatTime(r.CreatedAt))
		}

	case "create-room":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: kos-chat create-room <tenantId> <ownerId>")
			os.Exit(1)
		}
		sess := loadSession(ctx, store)
		roomID, err := services.Room.Create(ctx, sess, os.Args[2], os.Args[3])
		exitOnError(err)
		fmt.Printf("Room created: %s\n", roomID)

	case "open":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: kos-chat open <roomId>")
			os.Exit(1)
		}
		sess := loadSession(ctx, store)
		err := services.Chat.WithRoom(ctx, sess, os.Args[2], consoleView{}, func(v *service.RoomView) error {
			return interact(ctx, v)
		})
		exitOnError(err)

	case "broadcast":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: kos-chat broadcast <message>")
			os.Exit(1)
		}
		sess := loadSession(ctx, store)
		exitOnError(services.Room.Broadcast(ctx, sess, strings.Join(os.Args[2:], " ")))

	case "notifications":
		filter := domain.NotificationFilterAll
		if len(os.Args) > 2 {
			filter = domain.ParseNotificationFilter(os.Args[2])
		}
		sess := loadSession(ctx, store)
		list, err := services.Notification.List(ctx, sess, filter)
		exitOnError(err)
		if len(list) == 0 {
			fmt.Println("No notifications")
		}
		for _, n := range list {
			printNotification(n)
		}

	case "notification":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: kos-chat notification <id>")
			os.Exit(1)
		}
		sess := loadSession(ctx, store)
		n, err := services.Notification.Get(ctx, sess, os.Args[2])
		exitOnError(err)
		printJSON(n)

	case "watch":
		sess := loadSession(ctx, store)
		fmt.Println("Waiting for notifications, Ctrl+C to stop")
		exitOnError(services.Notification.Watch(ctx, sess, printNotification))

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func runSession(ctx context.Context, store repository.SessionStore, args []string) {
	if len(args) == 0 {
		sess := loadSession(ctx, store)
		fmt.Printf("Logged in as %s (%s)\n", sess.UserID, sess.Role)
		return
	}

	switch args[0] {
	case "set":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: kos-chat session set <token> [userId] [role]")
			os.Exit(1)
		}
		sess := repository.SessionFromToken(args[1])
		if len(args) > 2 {
			sess.UserID = args[2]
		}
		if len(args) > 3 {
			sess.Role = domain.ParseRole(args[3])
		}
		exitOnError(repository.CheckSession(sess))
		_, err := store.Save(ctx, sess)
		exitOnError(err)
		fmt.Printf("Session saved for %s (%s)\n", sess.UserID, sess.Role)

	case "clear":
		exitOnError(store.Delete(ctx, sessionID))
		fmt.Println("Session cleared")

	default:
		fmt.Fprintf(os.Stderr, "Unknown session command: %s\n", args[0])
		os.Exit(1)
	}
}

// loadSession отправляет на логин, если сессии нет или токен истек
func loadSession(ctx context.Context, store repository.SessionStore) domain.Session {
	sess, err := store.Load(ctx, sessionID)
	if err == nil {
		err = repository.CheckSession(sess)
	}
	if errors.Is(err, apperrors.ErrSessionNotFound) || errors.Is(err, apperrors.ErrUnauthorized) || errors.Is(err, apperrors.ErrTokenExpired) {
		fmt.Fprintln(os.Stderr, "Please log in: kos-chat session set <token> [userId] [role]")
		os.Exit(2)
	}
	exitOnError(err)
	return sess
}

// interact читает строки из stdin: текст отправляется, /команды меняют историю
func interact(ctx context.Context, v *service.RoomView) error {
	fmt.Println("Commands: /edit <id> <text>, /delete <id>, /reload, /quit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, v, line); quit {
				return nil
			}
		}
	}
}

func handleLine(ctx context.Context, v *service.RoomView, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	var err error
	switch fields[0] {
	case "/quit":
		return true
	case "/reload":
		err = v.LoadInitial(ctx)
	case "/delete":
		if len(fields) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: /delete <id>")
			return false
		}
		err = v.Delete(ctx, fields[1])
	case "/edit":
		id, content, ok := editArgs(line)
		if !ok {
			fmt.Fprintln(os.Stderr, "Usage: /edit <id> <text>")
			return false
		}
		err = v.Edit(ctx, id, content)
	default:
		err = v.Send(ctx, line)
	}

	// тост уже показан, здесь только ошибки проверки ввода
	if errors.Is(err, apperrors.ErrEmptyContent) {
		fmt.Fprintln(os.Stderr, "Message is empty")
	}
	return false
}

// editArgs разбирает "/edit <id> <text>"; текст берется из строки как есть
func editArgs(line string) (id, content string, ok bool) {
	rest := strings.TrimLeft(line, " \t")
	rest, found := strings.CutPrefix(rest, "/edit")
	if !found {
		return "", "", false
	}
	rest = strings.TrimLeft(rest, " \t")
	end := strings.IndexAny(rest, " \t")
	if end <= 0 {
		return "", "", false
	}
	id, content = rest[:end], rest[end+1:]
	if strings.TrimSpace(content) == "" {
		return "", "", false
	}
	return id, content, true
}

type consoleNotifier struct{}

func (consoleNotifier) Success(msg string) {
	fmt.Printf("[ok] %s\n", msg)
}

func (consoleNotifier) Error(msg string) {
	fmt.Fprintf(os.Stderr, "[error] %s\n", msg)
}

// consoleView печатает историю комнаты и новые сообщения
type consoleView struct {
	consoleNotifier
}

func (consoleView) OnLoaded(messages []domain.Message) {
	fmt.Printf("--- %d messages ---\n", len(messages))
	for _, m := range messages {
		printMessage(m)
	}
}

func (consoleView) OnAppended(m domain.Message) {
	printMessage(m)
}

func printMessage(m domain.Message) {
	from := m.SenderEmail
	if from == "" {
		from = m.SenderID
	}
	edited := ""
	if m.IsEdited {
		edited = " (edited)"
	}
	fmt.Printf("[%s] %s %s: %s%s\n", formatTime(m.Timestamp), m.ID, from, m.Content, edited)
}

func printNotification(n domain.Notification) {
	mark := "*"
	if n.Read {
		mark = " "
	}
	fmt.Printf("%s %s  %s  %s: %s\n", mark, n.ID, formatTime(n.CreatedAt), n.Title, n.Message)
}

func formatTime(t domain.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func usage() {
	fmt.Println(`kos-chat - chat between tenants and kos owners

Usage: kos-chat <command> [options]

Commands:
  session                           Show current session
  session set <token> [user] [role] Save credentials issued at login
  session clear                     Forget credentials
  rooms                             List your chat rooms
  create-room <tenantId> <ownerId>  Create a room
  open <roomId>                     Open a room and chat live
  broadcast <message>               Send to all tenants (owners only)
  notifications [all|read|unread]   List notifications
  notification <id>                 Show a notification and mark it read
  watch                             Print live notifications

Environment:
  API_URL        Backend REST base (default: http://localhost:8080/api)
  WS_URL         Realtime endpoint (default: http://localhost:8080/ws)
  WS_TRANSPORT   sockjs or websocket (default: sockjs)
  SESSION_DIR    Session directory (default: ~/.kos-chat)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
