package ragseed

// Doc is one bundled knowledge-base document.
type Doc struct {
	Source string
	Text   string
}

// DefaultCorpus returns the bundled AMPS and bond-RFQ knowledge documents.
// They are compiled in so a fresh deployment can answer domain questions
// without any network or file dependency at startup.
func DefaultCorpus() []Doc {
	return defaultCorpus
}

var defaultCorpus = []Doc{
	{Source: "amps-concepts", Text: ampsConcepts},
	{Source: "amps-admin-api", Text: ampsAdminAPI},
	{Source: "amps-config", Text: ampsConfig},
	{Source: "amps-operations", Text: ampsOperations},
	{Source: "kdb-analytics", Text: kdbAnalytics},
	{Source: "bond-rfq-domain", Text: bondRFQDomain},
}

const ampsConcepts = `
# AMPS Core Concepts

## What is AMPS?
AMPS (Advanced Message Processing System) by 60East Technologies is a
high-performance pub/sub messaging engine designed for financial data.
It is widely used in capital markets for real-time market data, order routing,
and position management.

## State of World (SOW)
The SOW is AMPS's built-in snapshot store. For each topic configured with SOW:
- AMPS stores the LATEST version of each record, keyed by a configurable field.
- A SOW query returns the current state of all records (like a SELECT * with dedup).
- SOW is stored in memory-mapped files (.sow) and survives server restarts.
- Example: positions SOW stores one record per (trader_id, isin) — always latest.

## Topics and Message Types
- A topic is a named stream of messages (like a Kafka topic but with SOW).
- Each topic has a message type: JSON, FIX, NVFIX, Binary, etc.
- Topics can be: pure pub/sub (no SOW), SOW-only, or SOW + subscribe.

## Subscribe vs SOW Query
- Subscribe: receive messages as they are published in real-time (streaming).
- SOW query: get a snapshot of the current state (one record per key).
- For analytics: prefer SOW query (less volume, current state).
- For event detection: use subscribe (all updates, in order).

## Content Filters
AMPS supports XPath-style content filters on any field:
  /desk = 'HY'
  /price > 100
  /desk = 'HY' AND /side = 'buy'
  /trader_id IN ('T_HY_001', 'T_HY_002')
Filters are applied server-side before messages are sent to clients.
`

const ampsAdminAPI = `
# AMPS HTTP Admin API

AMPS exposes a monitoring HTTP interface (default port 8085).

## GET /amps.json
Returns full server status:
- version, uptime, connected clients count
- memory usage (RSS, virtual)
- CPU utilization
- transport stats (messages received/sent per second)
- list of currently connected clients with names and IPs

## GET /topics.json
Returns all configured topics with statistics:
- topic name and message type
- SOW status (enabled/disabled), SOW record count
- messages per second (in and out)
- SOW memory usage in bytes
- SOW file path

## GET /clients.json
Returns currently connected clients:
- client name, connection time, IP address
- messages sent/received per client
- subscriptions count per client
`

const ampsConfig = `
# AMPS Server Configuration (config.xml)

AMPS is configured via an XML file passed at startup: ampServer config.xml

## Admin (HTTP monitoring port)
  <Admin>
    <InetAddr>0.0.0.0:8085</InetAddr>
  </Admin>

## Transport (client connections)
  <Transport>
    <Name>tcp-json</Name>
    <Type>tcp</Type>
    <InetAddr>0.0.0.0:9007</InetAddr>
    <MessageType>json</MessageType>
    <Protocol>amps</Protocol>
  </Transport>

## SOW Topic definition
  <Topic>
    <Name>bond_rfq</Name>
    <MessageType>json</MessageType>
    <Key>/rfq_id</Key>
    <SOW>
      <Type>HashFile</Type>
      <Filename>/sow/bond_rfq.sow</Filename>
      <RecordSize>256</RecordSize>
    </SOW>
  </Topic>

## SOW key field
The Key field uniquely identifies each record in the SOW.
For bond_rfq: /rfq_id (one record per RFQ id)
For positions: could be /trader_id+/isin composite key
`

const ampsOperations = `
# AMPS Agent Operations

The amps-agent specialist answers questions about the live AMPS instance.

## Server status
Reads /amps.json from the HTTP admin interface.
Returns: version, uptime, client count, memory usage, CPU stats.

## Topic inventory
Reads /topics.json for all topics with stats.
Returns: topic names, message types, SOW status, record counts, throughput.

## SOW query (topic, filter)
Queries the State-of-World for a topic.
Returns current state of all records (latest version per key).
Best for: current state queries, "what are the current positions", snapshot analysis.

## Subscribe sample (topic, filter, max_messages)
Subscribes to a topic and collects up to max_messages recent messages.
Best for: seeing recent data flow, event samples, delta stream analysis.
Warning: on high-throughput topics, use a tight filter and a low message cap.

## Publish (topic, data)
Publishes a JSON message to a topic.
Use for testing, event injection, or triggering downstream processors.
`

const kdbAnalytics = `
# KDB Bond RFQ Analytics

The kdb-agent specialist answers historical Bond RFQ questions from the KDB
historical store.

## Table inventory
Lists available tables. The main table is bond_rfq.

## Schema (table)
Returns column names and types for a table.
bond_rfq columns: rfq_id, desk, trader_id, trader_name, isin, bond_name,
issuer, sector, rating, side, notional_usd, price, spread_bps, coupon,
rfq_date, rfq_time, response_time_ms, won, hit_rate, venue

## Ad-hoc query (code, limit)
Executes a query against the historical store and returns up to limit rows.
Example:
  SELECT trader_id, AVG(hit_rate), COUNT(*) FROM bond_rfq
  WHERE desk='HY' GROUP BY trader_id ORDER BY AVG(hit_rate) DESC

## RFQ analytics (desk, date_from, date_to, group_by, top_n)
High-level aggregated analytics. Computes per group:
  rfq_count, avg_spread_bps, total_notional_usd, avg_hit_rate, wins, avg_response_ms
Returns top_n results ranked by avg_hit_rate.
- desk: HY / IG / EM / RATES (or empty for all)
- date_from / date_to: YYYY-MM-DD format
- group_by: trader_id (default), desk, sector, venue
- top_n: number of results (default 20)

This is the recommended starting point for most trading performance queries.
`

const bondRFQDomain = `
# Bond RFQ Domain Knowledge

## What is an RFQ?
A Request For Quote (RFQ) is when a client asks a trader to provide a price
for a bond transaction. The trader responds with a bid/ask, and the client
either trades (hit/lift) or walks away.

## Bond Desks
- HY (High Yield): bonds rated BB+ and below. Spreads 200-600 bps over UST.
  Higher risk, wider markets, more alpha potential for skilled traders.
- IG (Investment Grade): bonds rated BBB- and above. Spreads 40-220 bps over UST.
  Lower risk, tighter markets, volume-driven.
- EM (Emerging Markets): sovereign and corporate bonds from developing economies.
  Mix of HY and IG ratings, currency and political risk.
- RATES: government bonds (US Treasury, Bunds, Gilts). Spreads < 80 bps.

## Key Performance Metrics
- hit_rate: fraction of RFQs where the trader won the trade.
  Good HY trader: > 60%. Average: 40-55%.
- spread_bps: price quoted in basis points over the benchmark (UST).
  Lower spread = tighter/better price for the client.
- notional_usd: face value of the bond in USD. Indicates trading volume.
- response_time_ms: how fast the trader responded to the RFQ.

## What defines "best strategy"?
NOT just highest hit_rate — winning every RFQ means you're too cheap.
The best strategy balances:
1. Competitive hit_rate (60-75% for HY)
2. Spread discipline (not systematically tighter than peers)
3. High notional (active in the market)
4. Fast response time (good market access and pricing models)

A trader with 72% hit_rate AND avg spread at market levels is better than
one with 85% hit_rate who is always the cheapest (likely losing money).
`
