package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"

	"github.com/gwillem/zkbot/pkg/drink"
	"github.com/gwillem/zkbot/pkg/journal"
	"github.com/gwillem/zkbot/pkg/kiosk"
	"github.com/gwillem/zkbot/pkg/robot"
	"github.com/gwillem/zkbot/pkg/runner"
)

type KioskCommand struct {
	Menu    string `long:"menu" description:"Menu file (default from config)"`
	Journal string `long:"journal" description:"Order database (default from config)"`
}

const (
	kioskOrder  = "order"
	kioskQueue  = "queue"
	kioskCancel = "cancel"
	kioskPause  = "pause"
	kioskRecent = "recent"
	kioskQuit   = "quit"
)

func (c *KioskCommand) Execute(args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	menuFile := firstNonEmpty(c.Menu, cfg.MenuFile)
	journalFile := firstNonEmpty(c.Journal, cfg.JournalFile)

	menu, err := kiosk.LoadMenu(menuFile)
	if err != nil {
		return err
	}
	db, err := journal.Open(journalFile)
	if err != nil {
		return err
	}
	defer db.Close()

	composer := drink.NewComposer(robot.NewFileStore(cfg.Programs.Dir), cfg.Programs)
	arm := robot.NewArm(cfg.Serial, robot.WithLogger(log))
	maker := drink.NewMaker(composer, runner.New(arm, runner.WithLogger(log)), log)

	q := kiosk.NewQueue(maker,
		kiosk.WithMenu(menu),
		kiosk.WithJournal(db),
		kiosk.WithLogger(log),
		kiosk.WithHooks(kiosk.Hooks{
			OnStart: func(o kiosk.Order) {
				fmt.Println(subHeaderStyle.Render(fmt.Sprintf("Making order #%d: %d x %s for %s", o.ID, o.Quantity, o.DrinkKey, o.Customer)))
			},
			OnComplete: func(o kiosk.Order) {
				fmt.Println(successStyle.Render(fmt.Sprintf("Order #%d ready for %s (%s)", o.ID, o.Customer, o.Duration().Round(time.Second))))
			},
			OnFailed: func(o kiosk.Order) {
				fmt.Println(errorStyle.Render(fmt.Sprintf("Order #%d %s: %s", o.ID, o.Status, o.Error)))
			},
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	worker := make(chan error, 1)
	go func() { worker <- q.Run(ctx) }()

	fmt.Println(headerStyle.Render("ZKBot Kiosk"))
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d drinks on the menu, orders saved to %s", len(menu.Available()), db.Path())))

	for ctx.Err() == nil {
		action, err := kioskAction(q.Snapshot().Paused)
		if err != nil || action == kioskQuit {
			break
		}
		if err := kioskDo(action, q, menu, db); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
		}
	}

	stop()
	if snap := q.Snapshot(); snap.Current != nil {
		fmt.Println(dimStyle.Render("Finishing the drink in progress..."))
	}
	<-worker
	if n := q.Clear(); n > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("%d pending orders cancelled", n)))
	}
	printStats(db)
	return nil
}

func kioskAction(paused bool) (string, error) {
	pause := huh.NewOption("Pause the queue", kioskPause)
	if paused {
		pause = huh.NewOption("Resume the queue", kioskPause)
	}
	var action string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Kiosk").
			Options(
				huh.NewOption("Order a drink", kioskOrder),
				huh.NewOption("Show the queue", kioskQueue),
				huh.NewOption("Cancel an order", kioskCancel),
				pause,
				huh.NewOption("Recent orders", kioskRecent),
				huh.NewOption("Quit", kioskQuit),
			).
			Value(&action),
	)).Run()
	return action, err
}

func kioskDo(action string, q *kiosk.Queue, menu *kiosk.Menu, db *journal.DB) error {
	switch action {
	case kioskOrder:
		return takeOrder(q, menu)
	case kioskQueue:
		showQueue(q)
	case kioskCancel:
		return cancelOrder(q)
	case kioskPause:
		if q.Snapshot().Paused {
			q.Resume()
		} else {
			q.Pause()
		}
	case kioskRecent:
		return showRecent(db)
	}
	return nil
}

func takeOrder(q *kiosk.Queue, menu *kiosk.Menu) error {
	drinks := menu.Available()
	if len(drinks) == 0 {
		return errors.New("nothing on the menu")
	}
	var options []huh.Option[string]
	for _, d := range drinks {
		options = append(options, huh.NewOption(fmt.Sprintf("%-20s %8.2f", d.Label, d.Price), d.Key))
	}
	quantities := make([]huh.Option[int], 0, 5)
	for n := 1; n <= 5; n++ {
		quantities = append(quantities, huh.NewOption(fmt.Sprintf("%d", n), n))
	}

	var key, customer string
	quantity := 1
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title("Drink").Options(options...).Value(&key),
		huh.NewSelect[int]().Title("How many?").Options(quantities...).Value(&quantity),
		huh.NewInput().Title("Name").Placeholder("Guest").Value(&customer),
	)).Run()
	if err != nil {
		return nil
	}

	id, err := q.Submit(key, strings.TrimSpace(customer), quantity)
	if err != nil {
		return err
	}
	d, _ := menu.Lookup(key)
	fmt.Println(successStyle.Render(fmt.Sprintf("Order #%d: %d x %s, total %.2f", id, quantity, d.Label, d.Price*float64(quantity))))
	fmt.Printf("Position %d in the queue, ready in about %s\n", q.Position(id), waitText(q.EstimatedWait(id)))
	return nil
}

func showQueue(q *kiosk.Queue) {
	snap := q.Snapshot()
	if snap.Paused {
		fmt.Println(warnStyle.Render("Queue paused"))
	}
	if snap.Current != nil {
		fmt.Printf("Making #%d: %d x %s for %s, started %s\n", snap.Current.ID, snap.Current.Quantity,
			snap.Current.DrinkKey, snap.Current.Customer, humanize.Time(snap.Current.StartedAt))
	}
	if len(snap.Pending) == 0 {
		fmt.Println(dimStyle.Render("No orders waiting"))
		return
	}
	rows := make([][]string, 0, len(snap.Pending))
	for i, o := range snap.Pending {
		rows = append(rows, []string{
			fmt.Sprintf("#%d", o.ID),
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d x %s", o.Quantity, o.DrinkKey),
			o.Customer,
			humanize.Time(o.CreatedAt),
			waitText(q.EstimatedWait(o.ID)),
		})
	}
	fmt.Println(newTable([]string{"Order", "Pos", "Drink", "Customer", "Ordered", "Wait"}, rows, nil).Render())
	fmt.Println(dimStyle.Render(fmt.Sprintf("Average %s per drink", snap.PrepTime.Round(time.Second))))
}

func cancelOrder(q *kiosk.Queue) error {
	snap := q.Snapshot()
	if len(snap.Pending) == 0 {
		return errors.New("no orders waiting")
	}
	var options []huh.Option[int64]
	for _, o := range snap.Pending {
		options = append(options, huh.NewOption(fmt.Sprintf("#%d: %d x %s for %s", o.ID, o.Quantity, o.DrinkKey, o.Customer), o.ID))
	}
	var id int64
	if err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[int64]().Title("Cancel which order?").Options(options...).Value(&id),
	)).Run(); err != nil {
		return nil
	}
	if !q.Cancel(id) {
		return fmt.Errorf("order #%d is no longer waiting", id)
	}
	fmt.Println(warnStyle.Render(fmt.Sprintf("Order #%d cancelled", id)))
	return nil
}

func showRecent(db *journal.DB) error {
	orders, err := db.RecentOrders(10)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Println(dimStyle.Render("No orders yet"))
		return nil
	}
	rows := make([][]string, 0, len(orders))
	bad := map[int]bool{}
	for i, o := range orders {
		if o.Status == kiosk.StatusFailed {
			bad[i] = true
		}
		took := "-"
		if d := o.Duration(); d > 0 {
			took = d.Round(time.Second).String()
		}
		rows = append(rows, []string{
			fmt.Sprintf("#%d", o.ID),
			fmt.Sprintf("%d x %s", o.Quantity, o.DrinkKey),
			o.Customer,
			string(o.Status),
			humanize.Time(o.CreatedAt),
			took,
			o.Error,
		})
	}
	fmt.Println(newTable([]string{"Order", "Drink", "Customer", "Status", "Ordered", "Took", "Error"}, rows, bad).Render())
	return nil
}

func printStats(db *journal.DB) {
	st, err := db.Stats()
	if err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Printf("Completed %s orders (%s drinks), failed %d, cancelled %d, takings %.2f\n",
		humanize.Comma(int64(st.Orders[kiosk.StatusCompleted])), humanize.Comma(int64(st.Drinks)),
		st.Orders[kiosk.StatusFailed], st.Orders[kiosk.StatusCancelled], st.Revenue)
}

// waitText renders an estimated wait like "2 minutes".
func waitText(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	now := time.Now()
	return strings.TrimSpace(humanize.RelTime(now, now.Add(d), "", ""))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
