package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LingByte/LingMeet/pkg/config"
	"github.com/LingByte/LingMeet/pkg/events"
	"github.com/LingByte/LingMeet/pkg/logger"
	"github.com/LingByte/LingMeet/pkg/meeting"
	meetsignal "github.com/LingByte/LingMeet/pkg/meeting/signal"
)

// 演示：启动一个会话协调器，连接信令服务，并打印会话事件
func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.GlobalConfig
	if err := logger.Init(&cfg.Log, cfg.Mode); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	controller := meeting.NewSessionController(meeting.ControllerOptions{
		LocalParticipantID: "demo-user",
		Capture:            meeting.NewPionCapture(),
		WantVideo:          true,
		WantAudio:          true,
		AcquireTimeout:     cfg.Meeting.AcquireTimeout,
		ShareTimeout:       cfg.Meeting.ShareTimeout,
		QualitySampleTTL:   cfg.Meeting.QualitySampleTTL,
		EventQueueSize:     cfg.Meeting.EventQueueSize,
		Logger:             logger.Lg,
	})

	// Print every session event the bus publishes
	controller.Bus().Subscribe(events.EventTypeAll, func(ctx context.Context, event *events.Event) error {
		fmt.Printf("[event] type=%d session=%s sender=%s\n", event.Type, event.SessionID, event.Sender)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := controller.Start(ctx); err != nil {
		log.Fatalf("failed to start session: %v", err)
	}
	defer controller.End()

	fmt.Printf("session %s active\n", controller.Snapshot().SessionID)

	// Signaling is optional for the demo; without a server we stay in a
	// single-participant session
	client := meetsignal.NewClient(&cfg.Signal, controller.Snapshot().SessionID, "demo-user", controller)
	if err := client.Connect(ctx, "Demo User", "host"); err != nil {
		fmt.Printf("signaling unavailable (%v), running standalone\n", err)
	} else {
		defer client.Close()
	}

	// Exercise the coordinator surface
	if _, err := controller.SendChat("hello from the demo"); err != nil {
		fmt.Printf("chat failed: %v\n", err)
	}
	if err := controller.SetLayoutMode(meeting.LayoutSpeaker); err != nil {
		fmt.Printf("layout switch failed: %v\n", err)
	}

	snap := controller.Snapshot()
	fmt.Printf("layout=%s tiles=%d participants=%d unread=%d\n",
		snap.LayoutMode, len(snap.Tiles), len(snap.Participants), snap.Unread)

	// Run until interrupted or the demo window closes
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-interrupt:
		fmt.Println("interrupted, ending session")
	case <-ctx.Done():
		fmt.Println("demo window elapsed, ending session")
	}
}
