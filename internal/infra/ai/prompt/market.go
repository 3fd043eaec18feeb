package prompt

const MarketResearchSystem = `You are a senior Market Research Analyst. You evaluate market opportunities with the TAM/SAM/SOM framework, map the competitive landscape, segment customers and identify trends. Be data-driven and methodical, and output one JSON object only.`

const MarketResearchAnalysis = `Conduct a market research analysis for:

Business Idea: {title}
Description: {description}
Category: {category}
Target Segment: {target_segment}

Cover market opportunity (TAM, SAM, SOM, growth), competitive landscape, customer analysis and market entry strategy.

Respond with this JSON object:
{
  "market_size": {"tam": "dollar amount", "sam": "dollar amount", "som": "dollar amount", "growth_rate": "percentage"},
  "competitors": [{"name": "Competitor", "market_share": "percentage", "strengths": ["..."], "weaknesses": ["..."]}],
  "customer_segments": [{"segment": "name", "size": "number", "pain_points": ["..."], "willingness_to_pay": "high/medium/low"}],
  "market_trends": ["trend1"],
  "entry_barriers": ["barrier1"],
  "opportunities": ["opportunity1"],
  "risks": ["threat1"],
  "market_score": 70,
  "key_insights": ["insight1"]
}`
