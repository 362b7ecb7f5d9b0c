package dst

import (
	"fmt"

	"github.com/awfufu/go-dstbot/internal/config"
)

type Server struct {
	Name string
	IP   string
	Port int
	Rcon *config.RconConfig
}

// Registry is the ordered set of configured servers. It is built once and
// only read afterwards.
type Registry struct {
	servers []Server
	byName  map[string]int
}

func NewRegistry(servers []config.ServerConfig) (*Registry, error) {
	r := &Registry{
		servers: make([]Server, 0, len(servers)),
		byName:  make(map[string]int, len(servers)),
	}
	for _, s := range servers {
		if _, dup := r.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate server name %q", s.Name)
		}
		port := s.Port
		if port == 0 {
			port = config.DefaultControlPort
		}
		r.byName[s.Name] = len(r.servers)
		r.servers = append(r.servers, Server{Name: s.Name, IP: s.IP, Port: port, Rcon: s.Rcon})
	}
	return r, nil
}

// Servers returns the servers in configuration order.
func (r *Registry) Servers() []Server {
	out := make([]Server, len(r.servers))
	copy(out, r.servers)
	return out
}

func (r *Registry) Lookup(name string) (Server, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Server{}, false
	}
	return r.servers[i], true
}

func (r *Registry) Len() int {
	return len(r.servers)
}
