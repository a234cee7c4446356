package dispatch

import "errors"

// PushDispatcher tries the user's live websocket first and falls back to FCM
// push when the user is not connected.
type PushDispatcher struct {
	WS  *WSRegistry
	FCM *FCMDispatcher
}

func NewPushDispatcher(ws *WSRegistry, fcm *FCMDispatcher) *PushDispatcher {
	return &PushDispatcher{WS: ws, FCM: fcm}
}

func (p *PushDispatcher) Notify(username, event string, payload map[string]any) {
	if p.WS != nil {
		err := p.WS.Send(username, event, payload)
		if err == nil {
			return
		}
		if !errors.Is(err, ErrNoSession) {
			// socket existed but the write failed; still worth a push
			p.WS.Remove(username)
		}
	}
	if p.FCM != nil {
		p.FCM.Notify(username, event, payload)
	}
}
