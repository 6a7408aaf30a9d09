package ws

// room is one ephemeral editing session: the set of joined connections and
// the most recently broadcast full-text snapshot, kept for late joiners.
type room struct {
	id           string
	participants map[string]*Client
	lastContent  string
}

// Registry owns all room and membership state. It is deliberately free of
// locks: every method must be called from the Core dispatch goroutine only,
// which serializes each check-then-mutate-then-broadcast step.
type Registry struct {
	rooms map[string]*room
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
	}
}

// Join adds the connection to the room, creating it on first join. A
// connection is a member of at most one room: joining while a member of a
// different room runs Leave on the old one first. The joiner alone receives
// the current snapshot; the other members get a presence notification.
func (r *Registry) Join(cl *Client, roomID string) {
	if roomID == "" {
		return
	}

	if cl.roomID != "" && cl.roomID != roomID {
		r.Leave(cl, cl.roomID)
	}

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{
			id:           roomID,
			participants: make(map[string]*Client),
		}
		r.rooms[roomID] = rm
	}

	rm.participants[cl.ID] = cl
	cl.roomID = roomID

	if rm.lastContent != "" {
		cl.TrySend(NewInitContent(rm.lastContent))
	}

	r.broadcast(rm, cl.ID, NewUserConnected(cl.ID, len(rm.participants)))
}

// Leave removes the connection from the room (a no-op when it was never a
// member), notifies the remaining members with the updated count and deletes
// the room once it is empty. The snapshot dies with the room.
func (r *Registry) Leave(cl *Client, roomID string) {
	rm, ok := r.rooms[roomID]
	if !ok {
		if cl.roomID == roomID {
			cl.roomID = ""
		}
		return
	}

	delete(rm.participants, cl.ID)
	if cl.roomID == roomID {
		cl.roomID = ""
	}

	r.broadcast(rm, cl.ID, NewUserDisconnected(cl.ID, len(rm.participants)))

	if len(rm.participants) == 0 {
		delete(r.rooms, roomID)
	}
}

// Update overwrites the room snapshot with the incoming text and relays it to
// every member except the sender. Last write wins: there is no merge, version
// check or causal ordering, and concurrent editors can clobber each other.
// An update addressed to a room that does not exist is silently dropped.
func (r *Registry) Update(cl *Client, p TextUpdatePayload) {
	rm, ok := r.rooms[p.RoomID]
	if !ok {
		return
	}

	rm.lastContent = p.Text

	r.broadcast(rm, cl.ID, NewTextUpdated(cl.ID, p.Text, p.CursorPosition))
}

// Evict applies Leave semantics for every room holding the connection. The
// single-membership invariant means at most one room matches, but the sweep
// keeps disconnect cleanup deterministic regardless.
func (r *Registry) Evict(cl *Client) {
	for id, rm := range r.rooms {
		if _, ok := rm.participants[cl.ID]; ok {
			r.Leave(cl, id)
		}
	}
	cl.roomID = ""
}

// CloseAll tears down every connection and resets the registry.
func (r *Registry) CloseAll() {
	for _, rm := range r.rooms {
		for _, cl := range rm.participants {
			cl.Close()
		}
	}
	r.rooms = make(map[string]*room)
}

func (r *Registry) broadcast(rm *room, senderID string, ev *Event) {
	for id, cl := range rm.participants {
		if id == senderID {
			continue
		}
		cl.TrySend(ev)
	}
}

// RoomCount reports the number of live rooms.
func (r *Registry) RoomCount() int {
	return len(r.rooms)
}

// RoomState exposes a room's participant count and snapshot.
func (r *Registry) RoomState(roomID string) (participants int, lastContent string, ok bool) {
	rm, exists := r.rooms[roomID]
	if !exists {
		return 0, "", false
	}
	return len(rm.participants), rm.lastContent, true
}
