package runtime

import "sync"

// clientBufferSize bounds each attached client's outbound channel. A client
// that cannot keep up with the PTY drain is disconnected rather than
// allowed to stall it, matching the teacher's "drop and count" posture in
// its own subscriber fan-out.
const clientBufferSize = 256

// client is one attached consumer of a managed session's event stream.
type client struct {
	id string
	ch chan Event
}

// clientSet is the broadcast target set for one managed session. Send is
// non-blocking per client: a full channel means that client is
// backpressuring and gets disconnected rather than stalling everyone else.
type clientSet struct {
	mu      sync.Mutex
	clients map[string]*client
}

func newClientSet() *clientSet {
	return &clientSet{clients: make(map[string]*client)}
}

// Add registers a new client and returns its receive channel.
func (c *clientSet) Add(id string) <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Event, clientBufferSize)
	c.clients[id] = &client{id: id, ch: ch}
	return ch
}

// Remove detaches a client and closes its channel. Safe to call twice.
func (c *clientSet) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cl, ok := c.clients[id]
	if !ok {
		return
	}
	delete(c.clients, id)
	close(cl.ch)
}

// Len reports how many clients are currently attached.
func (c *clientSet) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// Broadcast delivers event to every attached client, disconnecting any
// whose channel is full instead of blocking.
func (c *clientSet) Broadcast(event Event) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var disconnected []string
	for id, cl := range c.clients {
		select {
		case cl.ch <- event:
		default:
			delete(c.clients, id)
			close(cl.ch)
			disconnected = append(disconnected, id)
		}
	}
	return disconnected
}
