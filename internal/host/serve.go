package host

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/webtags/native-host/internal/msg"
)

// Serve runs the native-messaging loop: read one framed request, handle
// it, write one framed response, until the extension closes stdin or ctx
// is cancelled. A framing failure gets a final error response before the
// loop stops, since the stream can no longer be trusted.
func (s *Session) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.log.Info("native messaging host started")
	defer s.log.Info("native messaging host stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := msg.ReadRequest(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			s.log.Error("failed to read message", zap.Error(err))
			resp := msg.Error(CodeReadMessage, fmt.Sprintf("Failed to read message: %v", err))
			if werr := msg.WriteResponse(w, resp); werr != nil {
				s.log.Error("failed to write error response", zap.Error(werr))
			}
			return err
		}

		s.log.Info("received message", zap.String("type", string(req.Type)))
		resp := s.Handle(ctx, req)

		if err := msg.WriteResponse(w, resp); err != nil {
			s.log.Error("failed to write response", zap.Error(err))
			return err
		}
	}
}
