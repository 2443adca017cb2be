package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"finguard/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the store with realistic demo data",
	Long: `Creates a demo user with three months of transactions, budgets for
the current month, savings goals and liabilities. Intended for local
development and manual testing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.StorePath())
		if err != nil {
			return err
		}
		defer st.Close()

		userID, count, err := seedDemoData(st)
		if err != nil {
			return err
		}
		fmt.Printf("Seeded user %d with %d transactions at %s\n", userID, count, cfg.StorePath())
		return nil
	},
}

func seedDemoData(st *store.Store) (int64, int, error) {
	userID, err := st.GetOrCreateUser("9876543210")
	if err != nil {
		return 0, 0, err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now().AddDate(0, 0, -90)
	count := 0

	add := func(daysFromStart int, category, txnType string, amount float64, narration, mode string) error {
		_, err := st.AddTransaction(store.Transaction{
			UserID:    userID,
			Category:  category,
			Date:      start.AddDate(0, 0, daysFromStart).Format("2006-01-02"),
			Type:      txnType,
			Amount:    amount,
			Narration: narration,
			Mode:      mode,
			Source:    store.SourceImport,
		})
		if err == nil {
			count++
		}
		return err
	}

	// Recurring monthly items.
	for m := 0; m < 3; m++ {
		base := m * 30
		if err := add(base, "Salary", store.TxnCredit, 85000, "Monthly Salary - TechCorp", "NEFT"); err != nil {
			return 0, 0, err
		}
		if m%2 == 0 {
			if err := add(base+14, "Freelance", store.TxnCredit, float64(10000+rng.Intn(15000)), "Freelance Project Payment", "UPI"); err != nil {
				return 0, 0, err
			}
		}
		if err := add(base+4, "Rent", store.TxnDebit, 25000, "Apartment Rent", "UPI"); err != nil {
			return 0, 0, err
		}
		if err := add(base+9, "Utilities", store.TxnDebit, float64(1500+rng.Intn(1500)), "Electricity & WiFi Bill", "UPI"); err != nil {
			return 0, 0, err
		}
	}

	// Random daily expenses.
	type expenseKind struct {
		category   string
		min, max   int
		narrations []string
	}
	kinds := []expenseKind{
		{"Food & Dining", 150, 1500, []string{"Zomato Order", "Starbucks Coffee", "Lunch at Office Cafe", "Dinner with Friends", "Swiggy Delivery"}},
		{"Groceries", 500, 4000, []string{"BigBasket Order", "DMart Shopping", "Zepto Quick Commerce"}},
		{"Commute", 50, 500, []string{"Uber Ride", "Ola Auto", "Metro Card Recharge"}},
		{"Shopping", 500, 8000, []string{"Amazon Purchase", "Flipkart Order", "Myntra Fashion"}},
		{"Entertainment", 200, 1500, []string{"Netflix Subscription", "Movie Tickets - PVR", "Spotify Premium"}},
		{"Health", 200, 3000, []string{"Apollo Pharmacy", "Doctor Consultation", "Gym Membership"}},
	}
	for i := 0; i < 80; i++ {
		k := kinds[rng.Intn(len(kinds))]
		amount := float64(k.min + rng.Intn(k.max-k.min))
		if err := add(rng.Intn(90), k.category, store.TxnDebit, amount, k.narrations[rng.Intn(len(k.narrations))], "UPI"); err != nil {
			return 0, 0, err
		}
	}

	// A few outliers for anomaly detection to find.
	if err := add(20, "Shopping", store.TxnDebit, 45000, "iPhone Purchase - Apple Store", "Card"); err != nil {
		return 0, 0, err
	}
	if err := add(50, "Travel", store.TxnDebit, 35000, "Flight Tickets - Goa Trip", "Card"); err != nil {
		return 0, 0, err
	}
	if err := add(75, "Health", store.TxnDebit, 12000, "Annual Health Checkup Package", "Card"); err != nil {
		return 0, 0, err
	}

	// Budgets for the current month.
	month := store.CurrentMonth()
	for _, b := range []struct {
		category string
		limit    float64
	}{
		{"Food & Dining", 8000},
		{"Shopping", 5000},
		{"Entertainment", 3000},
		{"Commute", 2000},
	} {
		if _, err := st.UpsertBudget(userID, b.category, b.limit, month); err != nil {
			return 0, 0, err
		}
	}

	// Goals with some progress.
	for _, g := range []struct {
		name     string
		target   float64
		saved    float64
		deadline string
	}{
		{"MacBook Pro", 200000, 45000, time.Now().AddDate(0, 6, 0).Format("2006-01-02")},
		{"Bali Trip", 100000, 15000, time.Now().AddDate(1, 0, 0).Format("2006-01-02")},
		{"Emergency Fund", 500000, 125000, ""},
	} {
		id, err := st.CreateGoal(userID, g.name, g.target, g.deadline)
		if err != nil {
			return 0, 0, err
		}
		if _, err := st.AddToGoal(userID, id, g.saved); err != nil {
			return 0, 0, err
		}
	}

	// Liabilities.
	if _, err := st.CreateLoan(store.Loan{
		UserID:           userID,
		Name:             "HDFC Home Loan",
		PrincipalAmount:  4500000,
		RemainingBalance: 4500000,
		EMIAmount:        35000,
		InterestRate:     8.7,
		NextDueDate:      time.Now().AddDate(0, 0, 15).Format("2006-01-02"),
	}); err != nil {
		return 0, 0, err
	}
	for _, c := range []store.CreditCard{
		{UserID: userID, CardName: "Amex Platinum", CreditLimit: 500000, CurrentBalance: 28000, DueDate: time.Now().AddDate(0, 0, 5).Format("2006-01-02")},
		{UserID: userID, CardName: "HDFC Regalia", CreditLimit: 300000, CurrentBalance: 12000, DueDate: time.Now().AddDate(0, 0, 12).Format("2006-01-02")},
	} {
		if _, err := st.CreateCreditCard(c); err != nil {
			return 0, 0, err
		}
	}

	return userID, count, nil
}
