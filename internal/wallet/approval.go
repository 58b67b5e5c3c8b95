// internal/wallet/approval.go
package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Approver решает, подписывать ли транзакцию. Ошибка прерывает подпись.
type Approver func(ctx context.Context, tx *solana.Transaction) (bool, error)

// ApprovingSigner запрашивает подтверждение перед каждой подписью.
type ApprovingSigner struct {
	wallet  *Wallet
	approve Approver
}

// NewApprovingSigner оборачивает кошелёк; nil approve подписывает без вопросов.
func NewApprovingSigner(w *Wallet, approve Approver) *ApprovingSigner {
	return &ApprovingSigner{wallet: w, approve: approve}
}

func (s *ApprovingSigner) PublicKey() solana.PublicKey {
	return s.wallet.PublicKey()
}

func (s *ApprovingSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	if s.approve != nil {
		ok, err := s.approve(ctx, tx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDeclined, err)
		}
		if !ok {
			return ErrDeclined
		}
	}
	return s.wallet.SignTransaction(ctx, tx)
}

// PromptApprover спрашивает подтверждение в терминале: печатает сводку
// транзакции в out и ждёт "y" из in. Запросы выполняются по одному.
// Чтение in идёт в одной горутине: отменённый запрос не оставляет второго
// читателя, а строка, пришедшая без ожидающего запроса, отбрасывается.
func PromptApprover(in io.Reader, out io.Writer) Approver {
	feed := &lineFeed{reader: bufio.NewReader(in)}
	var serial sync.Mutex

	return func(ctx context.Context, tx *solana.Transaction) (bool, error) {
		serial.Lock()
		defer serial.Unlock()

		if err := ctx.Err(); err != nil {
			return false, err
		}

		answer := feed.wait()
		fmt.Fprintf(out, "Transaction: %d instruction(s), %d account(s), fee payer %s\n",
			len(tx.Message.Instructions), len(tx.Message.AccountKeys), tx.Message.AccountKeys[0])
		fmt.Fprint(out, "Sign and send? [y/N]: ")

		select {
		case <-ctx.Done():
			feed.abandon(answer)
			return false, ctx.Err()
		case r := <-answer:
			if r.err != nil {
				return false, r.err
			}
			a := strings.ToLower(strings.TrimSpace(r.line))
			return a == "y" || a == "yes", nil
		}
	}
}

type lineResult struct {
	line string
	err  error
}

// lineFeed читает строки по запросу; одновременно идёт не больше одного чтения
type lineFeed struct {
	reader *bufio.Reader

	mu      sync.Mutex
	reading bool
	waiter  chan lineResult
}

func (f *lineFeed) wait() chan lineResult {
	ch := make(chan lineResult, 1)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.waiter = ch
	if !f.reading {
		f.reading = true
		go f.readLine()
	}
	return ch
}

func (f *lineFeed) abandon(ch chan lineResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waiter == ch {
		f.waiter = nil
	}
}

func (f *lineFeed) readLine() {
	line, err := f.reader.ReadString('\n')
	r := lineResult{line: line}
	if err != nil && line == "" {
		r.err = err
	}

	f.mu.Lock()
	f.reading = false
	waiter := f.waiter
	f.waiter = nil
	f.mu.Unlock()

	if waiter != nil {
		waiter <- r
	}
}

// GetATA делегирует вычисление ATA обёрнутому кошельку
func (s *ApprovingSigner) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	return s.wallet.GetATA(mint)
}
