// Terminal client for an estimation room: joins over the websocket, folds
// the broadcast stream into a local view and renders it on demand. Whatever
// two clients in the same room see only ever differs by their own vote
// marks.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"poker-lab/domain"
	"poker-lab/projection"
	"poker-lab/transport"

	"github.com/Netflix/go-env"
	"github.com/coder/websocket"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	url := fmt.Sprintf("%s/ws/%s", config.ServerURL, config.RoomCode)
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("connecting to %s: %w", url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	view := projection.NewRoomView(config.UserID)

	send := func(msg transport.InboundMessage) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		return conn.Write(ctx, websocket.MessageText, data)
	}

	if err := send(transport.InboundMessage{Type: "join", UserID: config.UserID}); err != nil {
		return exitRuntime, fmt.Errorf("joining room %s: %w", config.RoomCode, err)
	}
	color.Green.Printf("Joined room %s as %s\n", config.RoomCode, config.UserID)

	// Reader goroutine: folds broadcasts into the view and narrates them.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg transport.OutboundMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				logger.Warn("Unreadable frame", "error", err)
				continue
			}
			if msg.Type == "error" {
				color.Red.Printf("Rejected: %s\n", msg.Error)
				continue
			}
			evt, err := msg.Event()
			if err != nil {
				logger.Warn("Unknown frame", "type", msg.Type, "error", err)
				continue
			}
			_ = view.Consume(evt)
			narrate(evt)
		}
	}()

	prompt()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-done:
			color.Yellow.Println("Connection closed by server")
			return exitOK, nil
		default:
		}

		msg, render, quit, err := parseLine(scanner.Text(), view)
		switch {
		case err != nil:
			color.Red.Println(err.Error())
		case render:
			renderRoom(view)
		case msg != nil:
			if err := send(*msg); err != nil {
				return exitRuntime, fmt.Errorf("sending %s: %w", msg.Type, err)
			}
			if quit {
				return exitOK, nil
			}
		}
		prompt()
	}
	return exitOK, nil
}

func prompt() {
	color.Cyan.Print("> ")
}

// parseLine turns one input line into a frame to send, a render request or
// a quit. Questions are addressed by their list position, newest first.
func parseLine(line string, view *projection.RoomView) (*transport.InboundMessage, bool, bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, false, false, nil
	}

	switch fields[0] {
	case "list":
		return nil, true, false, nil

	case "leave":
		return &transport.InboundMessage{Type: "leave"}, false, true, nil

	case "ask":
		title, text, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "ask")), "|")
		if !ok {
			return nil, false, false, fmt.Errorf("usage: ask <title> | <text>")
		}
		return &transport.InboundMessage{
			Type:          "new_question",
			QuestionTitle: strings.TrimSpace(title),
			QuestionText:  strings.TrimSpace(text),
		}, false, false, nil

	case "vote":
		if len(fields) != 5 {
			return nil, false, false, fmt.Errorf("usage: vote <#> <weeks> <days> <hours>")
		}
		id, err := questionAt(view, fields[1])
		if err != nil {
			return nil, false, false, err
		}
		weeks, errW := strconv.Atoi(fields[2])
		days, errD := strconv.Atoi(fields[3])
		hours, errH := strconv.Atoi(fields[4])
		if errW != nil || errD != nil || errH != nil {
			return nil, false, false, fmt.Errorf("durations must be whole numbers")
		}
		return &transport.InboundMessage{
			Type: "vote", QuestionID: id,
			Weeks: weeks, Days: days, Hours: hours,
		}, false, false, nil

	case "close":
		if len(fields) != 2 {
			return nil, false, false, fmt.Errorf("usage: close <#>")
		}
		id, err := questionAt(view, fields[1])
		if err != nil {
			return nil, false, false, err
		}
		return &transport.InboundMessage{Type: "close_vote", QuestionID: id}, false, false, nil

	case "delete":
		if len(fields) != 2 {
			return nil, false, false, fmt.Errorf("usage: delete <#>")
		}
		id, err := questionAt(view, fields[1])
		if err != nil {
			return nil, false, false, err
		}
		return &transport.InboundMessage{Type: "delete_question", QuestionID: id}, false, false, nil

	case "help":
		return nil, false, false, fmt.Errorf("commands: list, ask <title> | <text>, vote <#> <w> <d> <h>, close <#>, delete <#>, leave")

	default:
		return nil, false, false, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
}

func questionAt(view *projection.RoomView, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return "", fmt.Errorf("question number expected, got %q", arg)
	}
	cards := view.Questions()
	if n < 1 || n > len(cards) {
		return "", fmt.Errorf("no question #%d (room has %d)", n, len(cards))
	}
	return cards[n-1].Question.ID.String(), nil
}

func narrate(evt domain.Event) {
	switch e := evt.(type) {
	case domain.UserJoined:
		color.Green.Printf("\n%s joined (%d in room)\n", e.UserID, e.Count)
	case domain.UserLeft:
		color.Yellow.Printf("\n%s left (%d in room)\n", e.UserID, e.Count)
	case domain.QuestionAdded:
		color.Cyan.Printf("\nNew question: %s\n", e.Question.Title)
	case domain.VoteRecorded:
		color.Gray.Printf("\nVote recorded (%d so far)\n", e.VoteCount)
	case domain.VotingClosed:
		if e.NoVotes {
			color.Magenta.Println("\nVoting closed without votes")
		} else {
			color.Magenta.Printf("\nVoting closed: %s\n", formatHours(e.Estimate))
		}
	case domain.QuestionDeleted:
		color.Yellow.Println("\nQuestion deleted")
	}
	prompt()
}

func renderRoom(view *projection.RoomView) {
	fmt.Printf("Participants: %d\n", view.Count())

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Title", "Votes", "Status", "Estimate", "Mine"})
	for i, card := range view.Questions() {
		status := "open"
		estimate := "-"
		if card.Question.Estimated {
			status = "closed"
			estimate = formatHours(card.Question.Estimate)
			if card.Question.NoVotes {
				estimate = "no votes"
			}
		}
		mine := ""
		if card.Voted {
			mine = "voted"
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			card.Question.Title,
			strconv.Itoa(card.Question.VoteCount),
			status,
			estimate,
			mine,
		})
	}
	table.Render()
}

func formatHours(h domain.Hours) string {
	weeks := int(h) / (7 * 24)
	days := (int(h) % (7 * 24)) / 24
	hours := int(h) % 24
	return fmt.Sprintf("%dw %dd %dh (%dh total)", weeks, days, hours, int(h))
}
