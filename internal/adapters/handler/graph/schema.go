package graph

const schemaString = `
schema {
  query: Query
  mutation: Mutation
}

type Poll {
  id: ID!
  title: String!
  options: [String!]!
  voteCounts: [Int!]!
  creator: String!
  totalVotes: Int!
  createdAt: String!
}

type Event {
  seq: Int!
  id: ID!
  kind: String!
  pollId: ID!
  optionIndex: Int
  actor: String!
  occurredAt: String!
}

type Query {
  # Fails when the poll does not exist.
  poll(id: ID!): Poll!
  # Every poll, in creation order.
  polls: [Poll!]!
  pollIds: [ID!]!
  userPolls(creator: String!): [ID!]!
  # Never fails; unknown polls and voters answer false.
  hasVoted(pollId: ID!, voter: String!): Boolean!
  pollCount: Int!
  events(after: Int, limit: Int): [Event!]!
}

type Mutation {
  createPoll(title: String!, options: [String!]!): ID!
  vote(pollId: ID!, optionIndex: Int!): Poll!
}
`
