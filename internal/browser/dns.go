package browser

import (
	"strings"
	"time"

	"github.com/miekg/dns"
)

// recordTypes lists the DNS record types signatures can match on, in
// query order.
var recordTypes = []struct {
	name string
	code uint16
}{
	{"a", dns.TypeA},
	{"aaaa", dns.TypeAAAA},
	{"cname", dns.TypeCNAME},
	{"mx", dns.TypeMX},
	{"ns", dns.TypeNS},
	{"soa", dns.TypeSOA},
	{"txt", dns.TypeTXT},
}

// lookupRecords resolves the domain's records per type. Failures yield
// empty lists; DNS signals are best effort.
func (c *Collector) lookupRecords(domain string) map[string][]string {
	if domain == "" {
		return nil
	}

	server := resolverAddr()
	client := &dns.Client{Timeout: 5 * time.Second}
	records := make(map[string][]string, len(recordTypes))

	for _, rt := range recordTypes {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(domain), rt.code)
		resp, _, err := client.Exchange(msg, server)
		if err != nil {
			c.log.WithField("domain", domain).Debugf("%s lookup failed: %v", rt.name, err)
			records[rt.name] = nil
			continue
		}
		for _, rr := range resp.Answer {
			// Keep the rdata only; owner name and TTL are noise for
			// pattern matching.
			rdata := strings.TrimSpace(strings.TrimPrefix(rr.String(), rr.Header().String()))
			records[rt.name] = append(records[rt.name], rdata)
		}
	}
	return records
}

// resolverAddr returns the system resolver from resolv.conf, falling
// back to a public one.
func resolverAddr() string {
	config, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err == nil && len(config.Servers) > 0 {
		return config.Servers[0] + ":" + config.Port
	}
	return "1.1.1.1:53"
}
