package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/net/netutil"

	"github.com/tesserachain/tessera/common"
	"github.com/tesserachain/tessera/common/util"
	"github.com/tesserachain/tessera/consensus"
	"github.com/tesserachain/tessera/ledger"
)

var logger *log.Entry = util.GetLoggerForModule("rpc")

// TesseraRPCServer exposes the node's consensus and ledger state over HTTP.
type TesseraRPCServer struct {
	consensus *consensus.ConsensusEngine
	accounts  *ledger.AccountsDB

	server   *http.Server
	router   *mux.Router
	listener net.Listener

	// Life cycle
	wg      *sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// NewTesseraRPCServer creates a new instance of TesseraRPCServer.
func NewTesseraRPCServer(consensus *consensus.ConsensusEngine, accounts *ledger.AccountsDB) *TesseraRPCServer {
	t := &TesseraRPCServer{
		consensus: consensus,
		accounts:  accounts,
		wg:        &sync.WaitGroup{},
	}

	t.router = mux.NewRouter()
	t.router.Handle("/", &defaultHTTPHandler{})
	t.router.Handle("/head", corsMiddleware(http.HandlerFunc(t.handleHead))).Methods("GET", "OPTIONS")
	t.router.Handle("/status", corsMiddleware(http.HandlerFunc(t.handleStatus))).Methods("GET", "OPTIONS")
	t.router.Handle("/slots", corsMiddleware(http.HandlerFunc(t.handleSlots))).Methods("GET", "OPTIONS")
	t.router.Handle("/commitment/{slot}", corsMiddleware(http.HandlerFunc(t.handleCommitment))).Methods("GET", "OPTIONS")
	t.router.Handle("/account/{address}", corsMiddleware(http.HandlerFunc(t.handleAccount))).Methods("GET", "OPTIONS")

	timeout := viper.GetDuration(common.CfgRPCTimeoutSecs) * time.Second
	t.server = &http.Server{
		Handler:      t.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	return t
}

// Start creates the main goroutine.
func (t *TesseraRPCServer) Start(ctx context.Context) {
	c, cancel := context.WithCancel(ctx)
	t.ctx = c
	t.cancel = cancel

	t.wg.Add(1)
	go t.mainLoop()
}

func (t *TesseraRPCServer) mainLoop() {
	defer t.wg.Done()

	go t.serve()

	<-t.ctx.Done()
	t.stopped = true
	t.server.Shutdown(t.ctx)
}

func (t *TesseraRPCServer) serve() {
	address := viper.GetString(common.CfgRPCAddress)
	port := viper.GetString(common.CfgRPCPort)
	l, err := net.Listen("tcp", address+":"+port)
	if err != nil {
		logger.WithFields(log.Fields{"error": err}).Fatal("Failed to create listener")
	} else {
		logger.WithFields(log.Fields{"address": address, "port": port}).Info("RPC server started")
	}
	defer l.Close()

	ll := netutil.LimitListener(l, viper.GetInt(common.CfgRPCMaxConnections))
	t.listener = ll

	logger.Info(t.server.Serve(ll))
}

// Stop notifies all goroutines to stop without blocking.
func (t *TesseraRPCServer) Stop() {
	t.cancel()
}

// Wait blocks until all goroutines stop.
func (t *TesseraRPCServer) Wait() {
	t.wg.Wait()
}

//
// ------- Handlers ------- //
//

// HeadResult is the response of the /head endpoint.
type HeadResult struct {
	Slot   uint64 `json:"slot"`
	Hash   string `json:"hash"`
	Weight uint64 `json:"weight"`
}

func (t *TesseraRPCServer) handleHead(w http.ResponseWriter, r *http.Request) {
	head, ok := t.consensus.CurrentHead()
	if !ok {
		writeError(w, http.StatusNotFound, "no head yet")
		return
	}
	writeJSON(w, HeadResult{Slot: head.Slot, Hash: head.Hash.Hex(), Weight: head.Weight})
}

// StatusResult is the response of the /status endpoint.
type StatusResult struct {
	CurrentSlot uint64 `json:"current_slot"`
	Epoch       uint64 `json:"epoch"`
}

func (t *TesseraRPCServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StatusResult{CurrentSlot: t.consensus.CurrentSlot(), Epoch: t.consensus.Epoch()})
}

// SlotsResult is the response of the /slots endpoint.
type SlotsResult struct {
	CommittedSlots []uint64 `json:"committed_slots"`
}

func (t *TesseraRPCServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, SlotsResult{CommittedSlots: t.consensus.CommittedSlotList()})
}

// CommitmentResult is the response of the /commitment/{slot} endpoint.
type CommitmentResult struct {
	Slot  uint64 `json:"slot"`
	Level string `json:"level"`
}

func (t *TesseraRPCServer) handleCommitment(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.ParseUint(mux.Vars(r)["slot"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot")
		return
	}
	writeJSON(w, CommitmentResult{Slot: slot, Level: t.consensus.CommitmentLevel(slot).String()})
}

// AccountResult is the response of the /account/{address} endpoint.
type AccountResult struct {
	Address string       `json:"address"`
	Balance uint64       `json:"balance"`
	Owner   string       `json:"owner"`
	Data    common.Bytes `json:"data"`
}

func (t *TesseraRPCServer) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr := common.HexToAddress(mux.Vars(r)["address"])
	account, err := t.accounts.GetAccount(addr)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, AccountResult{
		Address: addr.Hex(),
		Balance: account.Balance,
		Owner:   account.Owner.Hex(),
		Data:    account.Data,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithFields(log.Fields{"error": err}).Error("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func corsMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler.ServeHTTP(w, r)
	})
}

type defaultHTTPHandler struct {
}

func (dh *defaultHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Tessera node is up and running!")
}
