package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"thrx-be/internal/config"
	"thrx-be/internal/constant"
	"thrx-be/internal/entity"
	"thrx-be/internal/pkg/logger"
	"thrx-be/internal/repository/contract"
	"thrx-be/internal/repository/implementation"
	"thrx-be/internal/repository/specification"
	"thrx-be/pkg/conversation"
	"thrx-be/pkg/events"
	pktNats "thrx-be/pkg/nats"
	"thrx-be/pkg/store"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// inspect prints what the chat store holds, or tails the event stream.
//
//	go run ./cmd/inspect                 list every chat
//	go run ./cmd/inspect -chat <id>      print one chat's message tree
//	go run ./cmd/inspect -watch          follow events on NATS
func main() {
	chatId := flag.String("chat", "", "print the message tree of this chat")
	watch := flag.Bool("watch", false, "follow turn events on NATS")
	flag.Parse()

	cfg := config.Load()

	if *watch {
		if err := watchEvents(cfg.App.NatsURL); err != nil {
			color.Red("Watch failed: %v", err)
			os.Exit(1)
		}
		return
	}

	kv, err := store.Open(store.Config{
		Driver:        cfg.Store.Driver,
		Path:          cfg.Store.Path,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		DSN:           cfg.Store.DSN,
	})
	if err != nil {
		log.Fatal("Error: Failed to open store:", err)
	}
	defer kv.Close()

	repo := implementation.NewChatRepository(kv)
	ctx := context.Background()

	if *chatId != "" {
		err = printTree(ctx, repo, *chatId)
	} else {
		err = listChats(ctx, repo, cfg.Store.Driver)
	}
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
}

func listChats(ctx context.Context, repo contract.ChatRepository, driver string) error {
	groups, err := repo.FindAll(ctx, specification.GroupsOnly{})
	if err != nil {
		return err
	}
	color.Cyan("🔍 %d chats in %s store\n", len(groups), driver)

	for _, group := range groups {
		if err := printChatLine(ctx, repo, group, 0); err != nil {
			return err
		}
	}
	return nil
}

func printChatLine(ctx context.Context, repo contract.ChatRepository, chat *entity.Chat, depth int) error {
	messages, err := repo.LoadMessages(ctx, chat.Id)
	if err != nil {
		return err
	}
	size := 0
	for _, m := range messages {
		size += len(m.Content)
	}

	indent := strings.Repeat("  ", depth)
	title := color.New(color.Bold).Sprint(chat.Title)
	if chat.IsBranch() {
		title = color.MagentaString("⑂ ") + title
	}
	fmt.Printf("%s%s %s  %s, %s, %s\n",
		indent,
		color.HiBlackString(chat.Id),
		title,
		humanize.Time(chat.CreatedAt),
		humanize.Comma(int64(len(messages)))+" messages",
		humanize.Bytes(uint64(size)),
	)

	branches, err := repo.FindAll(ctx, specification.ByParentId{ParentId: chat.Id})
	if err != nil {
		return err
	}
	for _, b := range branches {
		if err := printChatLine(ctx, repo, b, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func printTree(ctx context.Context, repo contract.ChatRepository, chatId string) error {
	chat, err := repo.FindById(ctx, chatId)
	if err != nil {
		return err
	}
	if chat == nil {
		return fmt.Errorf("chat %s: %w", chatId, store.ErrNotFound)
	}
	messages, err := repo.LoadMessages(ctx, chatId)
	if err != nil {
		return err
	}

	tree := conversation.NewTree(messages)
	leaf, _ := tree.DefaultLeaf()
	onTrail := make(map[string]bool)
	for _, m := range tree.Trail(leaf.Id) {
		onTrail[m.Id] = true
	}

	color.Cyan("🔍 %s (%s), %d messages\n", chat.Title, chat.Id, tree.Len())

	// Orphans (parent not stored) are shown as roots.
	var roots []entity.Message
	for _, m := range tree.Messages() {
		if m.ParentId == "" || !tree.Has(m.ParentId) {
			roots = append(roots, m)
		}
	}
	for _, root := range roots {
		printNode(tree, root, 0, onTrail)
	}
	return nil
}

func printNode(tree *conversation.Tree, m entity.Message, depth int, onTrail map[string]bool) {
	marker := "  "
	if onTrail[m.Id] {
		marker = color.GreenString("● ")
	}

	role := m.Role
	switch m.Role {
	case constant.ChatMessageRoleUser:
		role = color.BlueString(m.Role)
	case constant.ChatMessageRoleAssistant:
		role = color.YellowString(m.Role)
	case constant.ChatMessageRoleSystem:
		role = color.RedString(m.Role)
	}

	content := strings.Join(strings.Fields(m.Content), " ")
	if r := []rune(content); len(r) > 70 {
		content = string(r[:70]) + "…"
	}
	fmt.Printf("%s%s%s %s\n", strings.Repeat("  ", depth), marker, role, content)

	for _, child := range tree.Children(m.Id) {
		printNode(tree, child, depth+1, onTrail)
	}
}

func watchEvents(url string) error {
	if url == "" {
		return fmt.Errorf("NATS_URL is not set")
	}
	sub, err := pktNats.NewSubscriber(url, logger.NewNopLogger())
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cc, err := sub.Subscribe(ctx, pktNats.TurnSubjects, "", func(_ context.Context, event events.Event) error {
		chatId := events.ChatIdOf(event)
		if chatId == "" {
			chatId = "-"
		}
		fmt.Printf("%s %s %s %v\n",
			color.HiBlackString(event.Timestamp().Format("15:04:05")),
			color.CyanString(event.EventType()),
			chatId,
			event.Payload(),
		)
		return nil
	})
	if err != nil {
		return err
	}
	defer cc.Stop()

	color.Cyan("👀 Watching %s (Ctrl+C to stop)\n", url)
	<-ctx.Done()
	return nil
}
