package server

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// handleConn runs one connection's command loop. Commands on a
// connection are processed strictly in order; the selected database is
// connection state.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	s.metrics.ActiveConnections.Inc()
	defer s.metrics.ActiveConnections.Dec()

	logger := s.logger.With(
		"conn", uuid.NewString(),
		"remote", conn.RemoteAddr().String(),
	)
	logger.Debug("client connected")
	defer logger.Debug("client disconnected")

	var limiter *rate.Limiter
	if s.cfg.RateLimit > 0 {
		burst := s.cfg.RateBurst
		if burst <= 0 {
			burst = max(int(s.cfg.RateLimit), 1)
		}
		limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
	}

	var active *handle

	for {
		cmd, meta, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.Debug("read frame failed", "error", err)
			}
			return
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		start := time.Now()
		ok, fatal := s.dispatch(conn, &active, cmd, meta, logger)

		status := "ok"
		if !ok {
			status = "error"
		}
		name := cmdName(cmd)
		s.metrics.CommandsTotal.WithLabelValues(name, status).Inc()
		s.metrics.CommandDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		if fatal {
			return
		}
	}
}

// dispatch handles one command. ok reports command success (for
// metrics); fatal requests closing the connection (protocol violations
// and dead sockets).
func (s *Server) dispatch(conn net.Conn, active **handle, cmd byte, meta uint32, logger *slog.Logger) (ok, fatal bool) {
	if cmd == CmdSelectDB {
		return s.handleSelectDB(conn, active, meta, logger)
	}

	h := *active
	if h == nil {
		logger.Warn("command before SELECT_DB", "cmd", cmdName(cmd))
		return false, true
	}

	dim := h.db.Dim()

	switch cmd {
	case CmdInsert:
		vec, err := readVector(conn, dim)
		if err != nil {
			return false, true
		}
		h.mu.Lock()
		err = h.db.Insert(uint64(meta), vec)
		h.mu.Unlock()
		if err != nil {
			logger.Debug("insert failed", "key", meta, "error", err)
			return false, writeByte(conn, respFail) != nil
		}
		return true, writeByte(conn, respOK) != nil

	case CmdSearch:
		query, err := readVector(conn, dim)
		if err != nil {
			return false, true
		}
		h.mu.Lock()
		key, err := h.db.Search(query)
		h.mu.Unlock()
		if err != nil {
			logger.Debug("search failed", "error", err)
			return false, writeInt32(conn, -1) != nil
		}
		return true, writeInt32(conn, key) != nil

	case CmdDelete:
		h.mu.Lock()
		removed, err := h.db.Remove(uint64(meta))
		h.mu.Unlock()
		if err != nil {
			logger.Debug("delete failed", "key", meta, "error", err)
			return false, writeByte(conn, respFail) != nil
		}
		resp := byte(respFail)
		if removed {
			resp = respOK
		}
		return true, writeByte(conn, resp) != nil

	case CmdUpdate:
		vec, err := readVector(conn, dim)
		if err != nil {
			return false, true
		}
		h.mu.Lock()
		updated, err := h.db.Update(uint64(meta), vec)
		h.mu.Unlock()
		if err != nil {
			logger.Debug("update failed", "key", meta, "error", err)
			return false, writeByte(conn, respFail) != nil
		}
		resp := byte(respFail)
		if updated {
			resp = respOK
		}
		return true, writeByte(conn, resp) != nil

	case CmdInsertAuto:
		vec, err := readVector(conn, dim)
		if err != nil {
			return false, true
		}
		h.mu.Lock()
		key, err := h.db.InsertAuto(vec)
		h.mu.Unlock()
		if err != nil {
			logger.Debug("insert_auto failed", "error", err)
			return false, writeUint64(conn, 0) != nil
		}
		return true, writeUint64(conn, key) != nil

	case CmdSearchN:
		query, err := readVector(conn, dim)
		if err != nil {
			return false, true
		}
		h.mu.Lock()
		keys, err := h.db.SearchN(query, int(meta))
		h.mu.Unlock()
		if err != nil {
			logger.Debug("search_n failed", "n", meta, "error", err)
			return false, writeKeyList(conn, nil) != nil
		}
		return true, writeKeyList(conn, keys) != nil

	default:
		logger.Warn("unknown command", "cmd", cmd)
		return false, true
	}
}

// handleSelectDB reads the name and requested dimension, then opens or
// reuses the named database.
func (s *Server) handleSelectDB(conn net.Conn, active **handle, nameLen uint32, logger *slog.Logger) (ok, fatal bool) {
	if nameLen == 0 || int(nameLen) > s.cfg.MaxNameLength {
		logger.Warn("select_db with invalid name length", "len", nameLen)
		return false, true
	}

	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(conn, nameBuf); err != nil {
		return false, true
	}

	var dimBuf [4]byte
	if _, err := io.ReadFull(conn, dimBuf[:]); err != nil {
		return false, true
	}
	dim := int(binary.LittleEndian.Uint32(dimBuf[:]))
	if dim <= 0 || dim > maxDimension {
		logger.Warn("select_db with invalid dimension", "dimension", dim)
		return false, writeByte(conn, respFail) != nil
	}

	h, err := s.catalog.get(string(nameBuf), dim)
	if err != nil {
		logger.Warn("select_db failed", "db", string(nameBuf), "error", err)
		return false, writeByte(conn, respFail) != nil
	}

	*active = h
	logger.Debug("database selected", "db", string(nameBuf), "dimension", dim)
	return true, writeByte(conn, respOK) != nil
}
